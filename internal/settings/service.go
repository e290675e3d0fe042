package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ATLAS-backend/internal/platform/cache"
)

// ===== Error model (returns/orders と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	store Store
	cache *cache.Client
}

func NewService(store Store, c *cache.Client) *Service {
	return &Service{store: store, cache: c}
}

func cacheKey(section string) string { return "settings:" + section }

// load: キャッシュ→ストア→既定値 の順で取り出して out にデコードする
func (s *Service) load(ctx context.Context, key string, out any, def func() any) error {
	if v, ok := s.cache.Get(ctx, cacheKey(key)); ok {
		if json.Unmarshal([]byte(v), out) == nil {
			return nil
		}
	}

	v, found, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		// 既定値をそのまま返す（保存はしない）
		b, _ := json.Marshal(def())
		return json.Unmarshal(b, out)
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return ErrInternal("corrupted settings row: " + key)
	}
	s.cache.Set(ctx, cacheKey(key), v, cache.SettingsTTL)
	return nil
}

func (s *Service) save(ctx context.Context, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, string(b)); err != nil {
		return err
	}
	// 更新時はキャッシュを無効化（次の読みで再投入）
	s.cache.Del(ctx, cacheKey(key))
	return nil
}

// ----- system -----

func (s *Service) GetSystem(ctx context.Context) (*SystemSettings, error) {
	var out SystemSettings
	if err := s.load(ctx, KeySystem, &out, func() any { return DefaultSystem() }); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateSystem(ctx context.Context, in SystemSettings) (*SystemSettings, error) {
	if err := validateSystem(in); err != nil {
		return nil, err
	}
	if err := s.save(ctx, KeySystem, in); err != nil {
		return nil, err
	}
	return &in, nil
}

func validateSystem(in SystemSettings) error {
	if in.CompanyName == "" {
		return ErrInvalid("company_name is required")
	}
	if in.TimeFormat != "12h" && in.TimeFormat != "24h" {
		return ErrInvalid("time_format must be 12h or 24h")
	}
	if in.Theme != "light" && in.Theme != "dark" {
		return ErrInvalid("theme must be light or dark")
	}
	if _, err := parseHHMM(in.BusinessHours.Open); err != nil {
		return ErrInvalid("business_hours.open must be HH:MM")
	}
	if _, err := parseHHMM(in.BusinessHours.Close); err != nil {
		return ErrInvalid("business_hours.close must be HH:MM")
	}
	return nil
}

// ----- notifications -----

func (s *Service) GetNotifications(ctx context.Context) (*NotificationSettings, error) {
	var out NotificationSettings
	if err := s.load(ctx, KeyNotifications, &out, func() any { return DefaultNotifications() }); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, in NotificationSettings) (*NotificationSettings, error) {
	switch in.Frequency {
	case "immediate", "hourly", "daily":
	default:
		return nil, ErrInvalid("frequency must be immediate, hourly or daily")
	}
	if in.QuietHours.Enabled {
		if _, err := parseHHMM(in.QuietHours.Start); err != nil {
			return nil, ErrInvalid("quiet_hours.start must be HH:MM")
		}
		if _, err := parseHHMM(in.QuietHours.End); err != nil {
			return nil, ErrInvalid("quiet_hours.end must be HH:MM")
		}
	}
	if err := s.save(ctx, KeyNotifications, in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ----- security -----

func (s *Service) GetSecurity(ctx context.Context) (*SecuritySettings, error) {
	var out SecuritySettings
	if err := s.load(ctx, KeySecurity, &out, func() any { return DefaultSecurity() }); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateSecurity(ctx context.Context, in SecuritySettings) (*SecuritySettings, error) {
	if in.PasswordPolicy.MinLength < 4 || in.PasswordPolicy.MinLength > 128 {
		return nil, ErrInvalid("password_policy.min_length must be between 4 and 128")
	}
	if in.SessionTimeoutMinutes < 5 || in.SessionTimeoutMinutes > 24*60 {
		return nil, ErrInvalid("session_timeout_minutes must be between 5 and 1440")
	}
	for _, m := range in.TwoFactorMethods {
		if m != "app" && m != "sms" && m != "email" {
			return nil, ErrInvalid("two_factor_methods must be app, sms or email")
		}
	}
	switch in.AuditLogLevel {
	case "minimal", "standard", "verbose":
	default:
		return nil, ErrInvalid("audit_log_level must be minimal, standard or verbose")
	}
	if in.AuditLogRetentionDays < 1 {
		return nil, ErrInvalid("audit_log_retention_days must be >= 1")
	}
	if err := s.save(ctx, KeySecurity, in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ----- backup連携 -----

// Snapshot は全セクションの現在値（既定値込み）をJSONで返す
func (s *Service) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	sys, err := s.GetSystem(ctx)
	if err != nil {
		return nil, err
	}
	ntf, err := s.GetNotifications(ctx)
	if err != nil {
		return nil, err
	}
	sec, err := s.GetSecurity(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, 3)
	for key, v := range map[string]any{KeySystem: sys, KeyNotifications: ntf, KeySecurity: sec} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[key] = b
	}
	return out, nil
}

// RestoreSnapshot はバックアップの内容で設定を上書きする
func (s *Service) RestoreSnapshot(ctx context.Context, snap map[string]json.RawMessage) error {
	for _, key := range SectionKeys {
		v, ok := snap[key]
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, key, string(v)); err != nil {
			return err
		}
		s.cache.Del(ctx, cacheKey(key))
	}
	return nil
}
