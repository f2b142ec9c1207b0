package service

import (
	"context"
	"errors"
	"testing"

	"smartbudget/models"
	"smartbudget/report"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusAt(spent int64, methods ...models.AlertMethod) report.BudgetStatus {
	b := models.Budget{ID: 7, Category: "Food", MonthlyLimit: dec(100), Month: "2024-03", AlertThreshold: 80, AlertMethods: methods}
	txs := []models.Transaction{{ID: 1, Type: models.TransactionExpense, Category: "Food", Amount: dec(spent), Date: march(3)}}
	if spent == 0 {
		txs = nil
	}
	return report.EvaluateBudget(b, txs, march(1))
}

func TestAlertService_ThresholdOncePerLevel(t *testing.T) {
	email := &recordingSender{}
	svc := NewAlertService(map[models.AlertMethod]AlertSender{models.AlertEmail: email}, nil)
	ctx := context.Background()

	assert.Empty(t, svc.Check(ctx, statusAt(50, models.AlertEmail)))
	assert.Equal(t, []AlertLevel{AlertThresholdReached}, svc.Check(ctx, statusAt(85, models.AlertEmail)))
	assert.Empty(t, svc.Check(ctx, statusAt(90, models.AlertEmail)))
	assert.Equal(t, []AlertLevel{AlertOverBudget}, svc.Check(ctx, statusAt(120, models.AlertEmail)))
	assert.Empty(t, svc.Check(ctx, statusAt(130, models.AlertEmail)))

	require.Len(t, email.alerts, 2)
	assert.Equal(t, AlertThresholdReached, email.alerts[0].Level)
	assert.Equal(t, AlertOverBudget, email.alerts[1].Level)
}

func TestAlertService_ResetBelowThreshold(t *testing.T) {
	svc := NewAlertService(nil, nil)
	ctx := context.Background()

	assert.Equal(t, []AlertLevel{AlertThresholdReached}, svc.Check(ctx, statusAt(85)))
	// 删除交易后回落到阈值以下
	assert.Empty(t, svc.Check(ctx, statusAt(10)))
	assert.Equal(t, []AlertLevel{AlertThresholdReached}, svc.Check(ctx, statusAt(85)))
}

func TestAlertService_DirectOverBudgetSkipsThreshold(t *testing.T) {
	svc := NewAlertService(nil, nil)
	ctx := context.Background()

	assert.Equal(t, []AlertLevel{AlertOverBudget}, svc.Check(ctx, statusAt(150)))
	// 回落到阈值与预算之间，不补发阈值提醒
	assert.Empty(t, svc.Check(ctx, statusAt(90)))
	// 再次超支时重新提醒
	assert.Equal(t, []AlertLevel{AlertOverBudget}, svc.Check(ctx, statusAt(110)))
}

func TestAlertService_DispatchFailuresLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	failing := &recordingSender{err: errors.New("smtp down")}
	push := &recordingSender{}
	svc := NewAlertService(map[models.AlertMethod]AlertSender{
		models.AlertEmail: failing,
		models.AlertPush:  push,
	}, log)

	svc.Check(context.Background(), statusAt(85, models.AlertEmail, models.AlertPush, models.AlertSMS))

	assert.Len(t, failing.alerts, 1)
	assert.Len(t, push.alerts, 1)

	var errorsLogged, warnings int
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.ErrorLevel:
			errorsLogged++
		case logrus.WarnLevel:
			warnings++
			assert.Equal(t, models.AlertSMS, e.Data["method"])
		}
	}
	assert.Equal(t, 1, errorsLogged)
	assert.Equal(t, 1, warnings)
}

func TestLogSender(t *testing.T) {
	log, hook := test.NewNullLogger()
	err := LogSender{Log: log}.SendBudgetAlert(context.Background(), BudgetAlert{Level: AlertOverBudget, Status: statusAt(120)})
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, AlertOverBudget, hook.LastEntry().Data["level"])
}

func TestAlertMessage(t *testing.T) {
	msg := alertMessage(BudgetAlert{Level: AlertOverBudget, Status: statusAt(120)})
	assert.Contains(t, msg, "超出预算 20.00")

	msg = alertMessage(BudgetAlert{Level: AlertThresholdReached, Status: statusAt(85)})
	assert.Contains(t, msg, "85.00 / 100.00")
	assert.Contains(t, msg, "剩余 15.00")
}
