package service

import (
	"context"
	"fmt"

	"smartbudget/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// SendBudgetAlert 发送预算提醒邮件到 email.to
func (s *EmailService) SendBudgetAlert(_ context.Context, alert BudgetAlert) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 SMARTBUDGET_EMAIL_ENABLED=true")
	}
	if s.cfg.To == "" {
		return fmt.Errorf("未配置提醒收件人 email.to")
	}
	subject := "【智能记账】预算提醒"
	if alert.Level == AlertOverBudget {
		subject = "【智能记账】预算超支"
	}
	return s.sendEmail(s.cfg.To, subject, s.generateBudgetAlertBody(alert))
}

// generateBudgetAlertBody 生成预算提醒邮件内容
func (s *EmailService) generateBudgetAlertBody(alert BudgetAlert) string {
	st := alert.Status
	b := st.Budget
	color, title := "#f59e0b", "预算即将用完"
	if alert.Level == AlertOverBudget {
		color, title = "#ef4444", "预算已超支"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: %s; color: white; padding: 24px; text-align: center; }
        .content { padding: 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 12px; }
        .footer { background: #f8f9fa; padding: 16px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h2>%s</h2></div>
        <div class="content">
            <p>类别：<strong>%s</strong>（%s）</p>
            <p>预算：%s，已支出：%s，剩余：%s</p>
            <p>使用进度：%.1f%%（提醒阈值 %d%%）</p>
        </div>
        <div class="footer"><p>此邮件由系统自动发送，请勿回复</p></div>
    </div>
</body>
</html>
`, color, title, b.Category, b.Month,
		b.MonthlyLimit.StringFixed(2), st.Spent.StringFixed(2), st.Remaining.StringFixed(2),
		st.Progress, b.AlertThreshold)
}

// SendTestEmail 发送测试邮件
func (s *EmailService) SendTestEmail(toEmail string) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用")
	}
	body := `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>邮件配置成功</h2>
    <p>如果您收到这封邮件，说明预算提醒邮件可以正常发送。</p>
</body>
</html>
`
	return s.sendEmail(toEmail, "【智能记账】邮件配置测试", body)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.send(m)
}

func (s *EmailService) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}
