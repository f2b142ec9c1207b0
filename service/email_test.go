package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"smartbudget/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func newTestEmailService(cfg config.EmailConfig) (*EmailService, *[]*gomail.Message) {
	s := NewEmailService(&cfg)
	var sent []*gomail.Message
	s.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}
	return s, &sent
}

func TestEmailService_SendBudgetAlert(t *testing.T) {
	s, sent := newTestEmailService(config.EmailConfig{Enabled: true, Username: "bot@example.com", From: "智能记账", To: "me@example.com"})

	err := s.SendBudgetAlert(context.Background(), BudgetAlert{Level: AlertOverBudget, Status: statusAt(120)})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, []string{"me@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"【智能记账】预算超支"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestEmailService_NotConfigured(t *testing.T) {
	s, sent := newTestEmailService(config.EmailConfig{Enabled: false, To: "me@example.com"})
	assert.Error(t, s.SendBudgetAlert(context.Background(), BudgetAlert{Level: AlertThresholdReached, Status: statusAt(85)}))

	s, sent = newTestEmailService(config.EmailConfig{Enabled: true})
	assert.Error(t, s.SendBudgetAlert(context.Background(), BudgetAlert{Level: AlertThresholdReached, Status: statusAt(85)}))
	assert.Empty(t, *sent)
}

func TestEmailService_SendError(t *testing.T) {
	s := NewEmailService(&config.EmailConfig{Enabled: true, To: "me@example.com"})
	s.send = func(*gomail.Message) error { return errors.New("dial tcp: refused") }
	assert.Error(t, s.SendTestEmail("me@example.com"))
}

func TestGenerateBudgetAlertBody(t *testing.T) {
	s := NewEmailService(&config.EmailConfig{})

	body := s.generateBudgetAlertBody(BudgetAlert{Level: AlertThresholdReached, Status: statusAt(85)})
	assert.Contains(t, body, "预算即将用完")
	assert.Contains(t, body, "Food")
	assert.Contains(t, body, "2024-03")
	assert.Contains(t, body, "已支出：85.00")
	assert.Contains(t, body, "85.0%")

	body = s.generateBudgetAlertBody(BudgetAlert{Level: AlertOverBudget, Status: statusAt(120)})
	assert.Contains(t, body, "预算已超支")
	assert.Contains(t, body, "剩余：-20.00")
}
