package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Gopher0727/HappyBot/config"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "happybot",
	Short:         "Discord community bot and dashboard API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the selected subcommand until it returns or the process is
// asked to stop.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "happybot:", err)
		return err
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "",
		"path to a config file (toml, yaml or json); environment variables override it")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "json or console")
	bindFlag(flags, "logging.level", "log-level")
	bindFlag(flags, "logging.format", "log-format")

	rootCmd.AddCommand(runCmd, botCmd, apiCmd, migrateCmd)
}

// bootstrap loads configuration and builds the shared application state.
func bootstrap() (*app, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("配置初始化失败: %w", err)
	}
	return newApp(cfg)
}

func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind --%s: %v", name, err))
	}
}
