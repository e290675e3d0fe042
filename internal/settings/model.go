package settings

import (
	"fmt"
	"time"
)

// 設定は settings テーブルに1セクション=1行のJSONで持つ
const (
	KeySystem        = "system"
	KeyNotifications = "notifications"
	KeySecurity      = "security"
)

var SectionKeys = []string{KeySystem, KeyNotifications, KeySecurity}

type BusinessHours struct {
	Open        string   `json:"open"`  // "HH:MM"
	Close       string   `json:"close"` // "HH:MM"
	Timezone    string   `json:"timezone"`
	WorkingDays []string `json:"working_days"`
}

type SystemSettings struct {
	CompanyName    string        `json:"company_name"`
	CompanyEmail   string        `json:"company_email"`
	CompanyPhone   string        `json:"company_phone"`
	CompanyAddress string        `json:"company_address"`
	BusinessHours  BusinessHours `json:"business_hours"`
	Currency       string        `json:"currency"`
	DateFormat     string        `json:"date_format"`
	TimeFormat     string        `json:"time_format"` // 12h | 24h
	Language       string        `json:"language"`
	Theme          string        `json:"theme"` // light | dark
}

type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"（Startより小さければ日跨ぎ）
}

type NotificationSettings struct {
	EmailEnabled bool       `json:"email_enabled"`
	SMSEnabled   bool       `json:"sms_enabled"`
	PushEnabled  bool       `json:"push_enabled"`
	Frequency    string     `json:"frequency"` // immediate | hourly | daily
	QuietHours   QuietHours `json:"quiet_hours"`
}

type PasswordPolicy struct {
	MinLength        int  `json:"min_length"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireNumber    bool `json:"require_number"`
	RequireSymbol    bool `json:"require_symbol"`
	ExpiryDays       int  `json:"expiry_days"` // 0なら無期限
}

type SecuritySettings struct {
	PasswordPolicy        PasswordPolicy `json:"password_policy"`
	SessionTimeoutMinutes int            `json:"session_timeout_minutes"`
	TwoFactorMethods      []string       `json:"two_factor_methods"` // app | sms | email
	AuditLogRetentionDays int            `json:"audit_log_retention_days"`
	AuditLogLevel         string         `json:"audit_log_level"` // minimal | standard | verbose
}

// ===== 既定値（行が無いときに返す） =====

func DefaultSystem() SystemSettings {
	return SystemSettings{
		CompanyName: "ATLAS Logistics",
		BusinessHours: BusinessHours{
			Open:        "09:00",
			Close:       "18:00",
			Timezone:    "UTC",
			WorkingDays: []string{"mon", "tue", "wed", "thu", "fri"},
		},
		Currency:   "USD",
		DateFormat: "2006-01-02",
		TimeFormat: "24h",
		Language:   "en",
		Theme:      "light",
	}
}

func DefaultNotifications() NotificationSettings {
	return NotificationSettings{
		EmailEnabled: true,
		Frequency:    "immediate",
		QuietHours:   QuietHours{Enabled: false, Start: "22:00", End: "07:00"},
	}
}

func DefaultSecurity() SecuritySettings {
	return SecuritySettings{
		PasswordPolicy: PasswordPolicy{
			MinLength:     8,
			RequireNumber: true,
		},
		SessionTimeoutMinutes: 60,
		AuditLogRetentionDays: 90,
		AuditLogLevel:         "standard",
	}
}

// ===== Quiet Hours =====

// parseHHMM: "HH:MM" → その日の0時からの分数
func parseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// InQuietHours: t（ローカル時刻とみなす）が通知抑制ウィンドウ内かどうか。
// Start > End の場合は日跨ぎ（例 22:00〜07:00）。境界は開始側を含み終了側を含まない。
func (q QuietHours) InQuietHours(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err := parseHHMM(q.Start)
	if err != nil {
		return false
	}
	end, err := parseHHMM(q.End)
	if err != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()

	if start == end {
		return false
	}
	if start < end {
		return now >= start && now < end
	}
	// 日跨ぎ
	return now >= start || now < end
}
