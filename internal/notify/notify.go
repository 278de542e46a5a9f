package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/repository"
	"github.com/peakform-next/internal/service"
)

// New 根据配置选择通知实现，SMTP 未配置时退回日志通知。
func New(cfg *config.NotifyConfig, userRepo repository.UserRepository) service.Notifier {
	if cfg != nil && strings.EqualFold(cfg.Driver, "smtp") && strings.TrimSpace(cfg.SMTPHost) != "" {
		return &SMTPNotifier{cfg: cfg, userRepo: userRepo}
	}
	return &LogNotifier{}
}

// LogNotifier 日志通知，开发与测试环境使用。
type LogNotifier struct{}

// SendRestockNotice 将到货提醒写入日志
func (n *LogNotifier) SendRestockNotice(ctx context.Context, userID uint, items []service.RestockedItem) error {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, describeItem(item))
	}
	logger.Infow("restock_notice",
		"user_id", userID,
		"items", strings.Join(names, ", "),
	)
	return nil
}

// SMTPNotifier SMTP 邮件通知
type SMTPNotifier struct {
	cfg      *config.NotifyConfig
	userRepo repository.UserRepository
}

// SendRestockNotice 发送到货提醒邮件
func (n *SMTPNotifier) SendRestockNotice(ctx context.Context, userID uint, items []service.RestockedItem) error {
	user, err := n.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user %d has no email", userID)
	}

	var body strings.Builder
	body.WriteString("Good news! The following items are back in stock:\r\n\r\n")
	for _, item := range items {
		body.WriteString("  - ")
		body.WriteString(describeItem(item))
		body.WriteString("\r\n")
	}

	msg := buildMessage(n.cfg.From, user.Email, "Back in stock at Peakform", body.String())
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)

	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, n.cfg.From, []string{user.Email}, msg)
}

func describeItem(item service.RestockedItem) string {
	if item.VariantName != "" {
		return fmt.Sprintf("%s (%s)", item.ProductName, item.VariantName)
	}
	return item.ProductName
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
