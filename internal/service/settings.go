package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
)

// ISettingsService defines the per-guild configuration store
type ISettingsService interface {
	Get(ctx context.Context, guildID model.Snowflake) (*model.GuildSettings, error)
	Patch(ctx context.Context, guildID model.Snowflake, patch model.SettingsPatch) error
}

// SettingsService implements ISettingsService
type SettingsService struct {
	repo repository.ISettingsRepository
}

// NewSettingsService creates a new ISettingsService instance
func NewSettingsService(repo repository.ISettingsRepository) ISettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the stored settings, or the defaults for a guild that never
// saved any. The defaults are not persisted.
func (s *SettingsService) Get(ctx context.Context, guildID model.Snowflake) (*model.GuildSettings, error) {
	settings, err := s.repo.Find(ctx, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultSettings(guildID), nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Patch writes only the fields supplied in patch.
func (s *SettingsService) Patch(ctx context.Context, guildID model.Snowflake, patch model.SettingsPatch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, guildID, patch); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func validatePatch(p model.SettingsPatch) error {
	if p.WelcomeMessage != nil {
		msg := *p.WelcomeMessage
		if msg == "" {
			return invalid(model.FieldWelcomeMessage, "must not be empty")
		}
		if utf8.RuneCountInString(msg) > model.MaxWelcomeMessageLength {
			return invalid(model.FieldWelcomeMessage, "must be at most %d characters", model.MaxWelcomeMessageLength)
		}
	}
	return nil
}

// ParseSettingsPatch decodes a JSON object into a patch. Only the mutable
// settings fields are accepted; anything else is a ValidationError naming
// the field.
func ParseSettingsPatch(data []byte) (model.SettingsPatch, error) {
	var patch model.SettingsPatch

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return patch, invalid("body", "must be a JSON object")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, key := range keys {
		value := raw[key]
		switch key {
		case model.FieldWelcomeEnabled:
			patch.WelcomeEnabled, err = decodeFlag(key, value)
		case model.FieldLeaveEnabled:
			patch.LeaveEnabled, err = decodeFlag(key, value)
		case model.FieldLogEnabled:
			patch.LogEnabled, err = decodeFlag(key, value)
		case model.FieldTicketEnabled:
			patch.TicketEnabled, err = decodeFlag(key, value)
		case model.FieldWelcomeChannelID:
			patch.WelcomeChannelID, err = decodeID(key, value)
		case model.FieldLeaveChannelID:
			patch.LeaveChannelID, err = decodeID(key, value)
		case model.FieldLogChannelID:
			patch.LogChannelID, err = decodeID(key, value)
		case model.FieldTicketCategoryID:
			patch.TicketCategoryID, err = decodeID(key, value)
		case model.FieldWelcomeMessage:
			var msg string
			if json.Unmarshal(value, &msg) != nil {
				return patch, invalid(key, "must be a string")
			}
			patch.WelcomeMessage = &msg
		default:
			return patch, invalid(key, "unknown field")
		}
		if err != nil {
			return patch, err
		}
	}
	return patch, validatePatch(patch)
}

// decodeFlag accepts a JSON boolean or the integers 0 and 1. null is not a
// value: a flag can only be switched, never cleared.
func decodeFlag(field string, value json.RawMessage) (*bool, error) {
	if string(bytes.TrimSpace(value)) == "null" {
		return nil, invalid(field, "must be a boolean")
	}
	var b bool
	if err := json.Unmarshal(value, &b); err == nil {
		return &b, nil
	}
	switch string(bytes.TrimSpace(value)) {
	case "0":
		b = false
		return &b, nil
	case "1":
		b = true
		return &b, nil
	}
	return nil, invalid(field, "must be a boolean")
}

// decodeID accepts a snowflake as a JSON string or number, or null to clear.
func decodeID(field string, value json.RawMessage) (model.OptionalID, error) {
	if string(bytes.TrimSpace(value)) == "null" {
		return model.ClearID(), nil
	}
	var id model.Snowflake
	if err := json.Unmarshal(value, &id); err != nil {
		return model.OptionalID{}, invalid(field, "must be a snowflake id or null")
	}
	return model.SetID(id), nil
}
