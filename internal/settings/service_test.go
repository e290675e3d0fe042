package settings

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemStore(), nil)
}

func TestGetSystem_ReturnsDefaultsWhenUnset(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.GetSystem(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultSystem()
	if got.CompanyName != want.CompanyName {
		t.Errorf("expected default company name %q, got %q", want.CompanyName, got.CompanyName)
	}
	if got.TimeFormat != "24h" || got.Theme != "light" {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if got.BusinessHours.Open != "09:00" || got.BusinessHours.Close != "18:00" {
		t.Errorf("unexpected business hours: %+v", got.BusinessHours)
	}
}

func TestUpdateSystem_Roundtrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := DefaultSystem()
	in.CompanyName = "ATLAS Delivery GmbH"
	in.Theme = "dark"
	in.BusinessHours.Open = "08:30"

	if _, err := svc.UpdateSystem(ctx, in); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetSystem(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompanyName != "ATLAS Delivery GmbH" || got.Theme != "dark" || got.BusinessHours.Open != "08:30" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestUpdateSystem_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SystemSettings)
	}{
		{"empty company name", func(s *SystemSettings) { s.CompanyName = "" }},
		{"bad time format", func(s *SystemSettings) { s.TimeFormat = "13h" }},
		{"bad theme", func(s *SystemSettings) { s.Theme = "solarized" }},
		{"bad open time", func(s *SystemSettings) { s.BusinessHours.Open = "25:00" }},
		{"bad close time", func(s *SystemSettings) { s.BusinessHours.Close = "6pm" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := DefaultSystem()
			tc.mutate(&in)
			_, err := svc.UpdateSystem(ctx, in)
			var api *APIError
			if !errors.As(err, &api) || api.Code != CodeInvalidArgument {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestUpdateNotifications_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := DefaultNotifications()
	in.Frequency = "weekly"
	if _, err := svc.UpdateNotifications(ctx, in); err == nil {
		t.Error("expected error for unknown frequency")
	}

	in = DefaultNotifications()
	in.QuietHours = QuietHours{Enabled: true, Start: "22:00", End: "27:00"}
	if _, err := svc.UpdateNotifications(ctx, in); err == nil {
		t.Error("expected error for bad quiet hours end")
	}

	// 無効なら時刻は検証しない
	in = DefaultNotifications()
	in.QuietHours = QuietHours{Enabled: false, Start: "bad", End: "worse"}
	if _, err := svc.UpdateNotifications(ctx, in); err != nil {
		t.Errorf("disabled quiet hours should skip validation, got %v", err)
	}
}

func TestUpdateSecurity_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SecuritySettings)
	}{
		{"min length too small", func(s *SecuritySettings) { s.PasswordPolicy.MinLength = 3 }},
		{"min length too large", func(s *SecuritySettings) { s.PasswordPolicy.MinLength = 129 }},
		{"session timeout too small", func(s *SecuritySettings) { s.SessionTimeoutMinutes = 4 }},
		{"session timeout too large", func(s *SecuritySettings) { s.SessionTimeoutMinutes = 1441 }},
		{"unknown 2fa method", func(s *SecuritySettings) { s.TwoFactorMethods = []string{"carrier-pigeon"} }},
		{"unknown audit level", func(s *SecuritySettings) { s.AuditLogLevel = "debug" }},
		{"zero retention", func(s *SecuritySettings) { s.AuditLogRetentionDays = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := DefaultSecurity()
			tc.mutate(&in)
			_, err := svc.UpdateSecurity(ctx, in)
			var api *APIError
			if !errors.As(err, &api) || api.Code != CodeInvalidArgument {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}

	in := DefaultSecurity()
	in.TwoFactorMethods = []string{"app", "email"}
	got, err := svc.UpdateSecurity(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.TwoFactorMethods) != 2 {
		t.Errorf("expected methods preserved, got %v", got.TwoFactorMethods)
	}
}

func TestDefaultsAreNotPersisted(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.GetSystem(ctx); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Get(ctx, KeySystem); found {
		t.Error("reading defaults must not write a settings row")
	}
}

func TestSnapshotAndRestore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := DefaultSystem()
	in.CompanyName = "Before Restore Inc"
	if _, err := svc.UpdateSystem(ctx, in); err != nil {
		t.Fatal(err)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != len(SectionKeys) {
		t.Fatalf("expected %d sections, got %d", len(SectionKeys), len(snap))
	}

	// スナップショット後に書き換える
	in.CompanyName = "After Snapshot Ltd"
	if _, err := svc.UpdateSystem(ctx, in); err != nil {
		t.Fatal(err)
	}

	if err := svc.RestoreSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetSystem(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompanyName != "Before Restore Inc" {
		t.Errorf("expected restored value, got %q", got.CompanyName)
	}
}

func TestInQuietHours(t *testing.T) {
	day := func(hh, mm int) time.Time {
		return time.Date(2024, 11, 20, hh, mm, 0, 0, time.UTC)
	}

	q := QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	cases := []struct {
		t    time.Time
		want bool
	}{
		{day(23, 0), true},  // 夜間
		{day(3, 30), true},  // 日跨ぎ後
		{day(22, 0), true},  // 開始境界は含む
		{day(7, 0), false},  // 終了境界は含まない
		{day(12, 0), false}, // 日中
	}
	for _, tc := range cases {
		if got := q.InQuietHours(tc.t); got != tc.want {
			t.Errorf("InQuietHours(%s) = %v, want %v", tc.t.Format("15:04"), got, tc.want)
		}
	}

	// 同日内ウィンドウ
	q = QuietHours{Enabled: true, Start: "12:00", End: "13:00"}
	if !q.InQuietHours(day(12, 30)) {
		t.Error("expected 12:30 inside 12:00-13:00")
	}
	if q.InQuietHours(day(13, 0)) {
		t.Error("expected 13:00 outside 12:00-13:00")
	}

	// start == end は常に false
	q = QuietHours{Enabled: true, Start: "09:00", End: "09:00"}
	if q.InQuietHours(day(9, 0)) {
		t.Error("start == end must disable the window")
	}

	// 無効化
	q = QuietHours{Enabled: false, Start: "00:00", End: "23:59"}
	if q.InQuietHours(day(12, 0)) {
		t.Error("disabled quiet hours must never match")
	}
}
