package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"ATLAS-backend/internal/platform/db"
	"ATLAS-backend/internal/returns"
	"ATLAS-backend/internal/settings"
)

type fakeSettings struct {
	ns settings.NotificationSettings
}

func (f *fakeSettings) GetNotifications(ctx context.Context) (*settings.NotificationSettings, error) {
	cp := f.ns
	return &cp, nil
}

func sampleReturn() returns.ReturnResponse {
	return returns.ReturnResponse{
		ReturnULID:    "01TEST00000000000000000001",
		OrderNumber:   "ORD-2024-001",
		CustomerName:  "田中 太郎",
		CustomerEmail: "tanaka@example.com",
		Status:        returns.StatusApproved,
		RefundAmount:  1200,
	}
}

func TestNewMailer_NilWithoutHost(t *testing.T) {
	if m := NewMailer(db.SMTPConfig{}, &fakeSettings{}); m != nil {
		t.Fatal("expected nil mailer when smtp host is empty")
	}
}

func TestReturnStatusChanged_SkipsWhenEmailDisabled(t *testing.T) {
	src := &fakeSettings{ns: settings.NotificationSettings{EmailEnabled: false}}
	m := NewMailer(db.SMTPConfig{Host: "smtp.invalid", Port: 587, From: "noreply@example.com"}, src)

	// メール無効なら送信経路に入らない（SMTP未接続でもエラーにならない）
	m.ReturnStatusChanged(context.Background(), sampleReturn())
}

func TestReturnStatusChanged_SkipsDuringQuietHours(t *testing.T) {
	src := &fakeSettings{ns: settings.NotificationSettings{
		EmailEnabled: true,
		QuietHours:   settings.QuietHours{Enabled: true, Start: "00:00", End: "23:59"},
	}}
	m := NewMailer(db.SMTPConfig{Host: "smtp.invalid", Port: 587, From: "noreply@example.com"}, src)
	m.now = func() time.Time { return time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC) }

	// 静粛時間帯は抑制される（送信を試みない）
	m.ReturnStatusChanged(context.Background(), sampleReturn())
}

func TestBuildBody_ContainsOrderAndItems(t *testing.T) {
	m := NewMailer(db.SMTPConfig{Host: "smtp.invalid"}, &fakeSettings{})

	r := sampleReturn()
	r.Items = []returns.ReturnItemResponse{
		{Name: "Laptop", Quantity: 1, RefundAmount: 1200},
	}
	body := m.buildBody(r)
	for _, want := range []string{"ORD-2024-001", "田中 太郎", "Laptop", returns.StatusApproved} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
