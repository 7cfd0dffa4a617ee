package main

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gateway bot and the dashboard API together",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), true, true)
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the gateway bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), true, false)
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run only the dashboard API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), false, true)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.Close()) }()

		if err := a.openStore(cmd.Context()); err != nil {
			a.log.Error("迁移失败", zap.Error(err))
			return err
		}
		a.log.Info("数据库迁移完成", zap.String("driver", a.store.Driver()))
		return nil
	},
}

type runner interface {
	Run(ctx context.Context) error
}

// serve starts the requested components and blocks until ctx is cancelled
// or one of them fails, in which case the others are stopped as well.
func serve(ctx context.Context, withBot, withAPI bool) (err error) {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	if withBot {
		if err := a.checkBot(); err != nil {
			a.log.Error("机器人配置无效", zap.Error(err))
			return err
		}
	}
	if withAPI {
		if err := a.checkAPI(); err != nil {
			a.log.Error("API 配置无效", zap.Error(err))
			return err
		}
	}

	if err := a.openStore(ctx); err != nil {
		a.log.Error("存储初始化失败", zap.Error(err))
		return err
	}

	var runners []runner
	if withAPI {
		srv, err := a.newAPIServer(ctx)
		if err != nil {
			a.log.Error("API 初始化失败", zap.Error(err))
			return err
		}
		runners = append(runners, srv)
	}
	if withBot {
		b, err := a.newBot()
		if err != nil {
			a.log.Error("机器人初始化失败", zap.Error(err))
			return err
		}
		runners = append(runners, b)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, len(runners))
	var wg sync.WaitGroup
	for i, r := range runners {
		wg.Go(func() {
			if errs[i] = r.Run(ctx); errs[i] != nil {
				a.log.Error("组件异常退出", zap.Error(errs[i]))
				cancel()
			}
		})
	}
	wg.Wait()
	a.log.Info("已停止")
	return errors.Join(errs...)
}
