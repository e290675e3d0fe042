// Package notify は返品ステータス変更のメール通知を提供する。
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wneessen/go-mail"

	"ATLAS-backend/internal/platform/db"
	"ATLAS-backend/internal/returns"
	"ATLAS-backend/internal/settings"
)

// SettingsSource は通知設定の参照に使う（settings.Service が満たす）
type SettingsSource interface {
	GetNotifications(ctx context.Context) (*settings.NotificationSettings, error)
}

// Mailer は returns.Notifier の実装。
// SMTPホスト未設定なら NewMailer が nil を返し、呼び出し側は通知なしで動く。
type Mailer struct {
	cfg      db.SMTPConfig
	settings SettingsSource
	now      func() time.Time
}

func NewMailer(cfg db.SMTPConfig, src SettingsSource) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{cfg: cfg, settings: src, now: time.Now}
}

// ReturnStatusChanged は顧客と管理者宛にステータス変更メールを送る。
// 通知はベストエフォート。失敗してもAPIのレスポンスには影響させない。
func (m *Mailer) ReturnStatusChanged(ctx context.Context, r returns.ReturnResponse) {
	ns, err := m.settings.GetNotifications(ctx)
	if err != nil {
		log.Printf("[WARN] failed to load notification settings: %v", err)
		return
	}
	if !ns.EmailEnabled {
		return
	}
	if ns.QuietHours.InQuietHours(m.now()) {
		log.Printf("[INFO] notification suppressed by quiet hours: return=%s", r.ReturnULID)
		return
	}

	subject := fmt.Sprintf("返品 %s のステータスが %s になりました", r.ReturnULID, r.Status)
	body := m.buildBody(r)

	recipients := []string{}
	if r.CustomerEmail != "" {
		recipients = append(recipients, r.CustomerEmail)
	}
	if m.cfg.AdminTo != "" {
		recipients = append(recipients, m.cfg.AdminTo)
	}
	if len(recipients) == 0 {
		return
	}

	if err := m.send(recipients, subject, body); err != nil {
		log.Printf("[ERROR] failed to send notification mail: %v", err)
		return
	}
	log.Printf("[INFO] notification sent: return=%s status=%s to=%d", r.ReturnULID, r.Status, len(recipients))
}

func (m *Mailer) buildBody(r returns.ReturnResponse) string {
	items := ""
	for _, it := range r.Items {
		items += fmt.Sprintf("<tr><td>%s</td><td>%d</td><td>%.2f</td></tr>", it.Name, it.Quantity, it.RefundAmount)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>返品ステータスのお知らせ</h2>
  <p>%s 様</p>
  <p>注文 %s の返品リクエストのステータスが <strong>%s</strong> に変わりました。</p>
  <table border="1" cellpadding="6" style="border-collapse: collapse;">
    <tr><th>商品</th><th>数量</th><th>返金額</th></tr>
    %s
  </table>
  <p>返金予定額合計: %.2f</p>
</body>
</html>`, r.CustomerName, r.OrderNumber, r.Status, items, r.RefundAmount)
}

func (m *Mailer) send(to []string, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}
