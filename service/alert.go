package service

import (
	"context"
	"sync"

	"smartbudget/models"
	"smartbudget/report"

	"github.com/sirupsen/logrus"
)

// AlertLevel 预算提醒级别
type AlertLevel string

const (
	// AlertThresholdReached 支出达到提醒阈值
	AlertThresholdReached AlertLevel = "threshold"
	// AlertOverBudget 支出超过预算
	AlertOverBudget AlertLevel = "over_budget"
)

// BudgetAlert 一次预算提醒
type BudgetAlert struct {
	Level  AlertLevel
	Status report.BudgetStatus
}

// AlertSender 单个提醒渠道
type AlertSender interface {
	SendBudgetAlert(ctx context.Context, alert BudgetAlert) error
}

type alertKey struct {
	budgetID int
	month    string
	level    AlertLevel
}

// AlertService 预算提醒分发。同一预算同一级别在进程内只提醒一次，
// 回落到阈值以下后重新计数。
type AlertService struct {
	senders map[models.AlertMethod]AlertSender
	log     logrus.FieldLogger

	mu    sync.Mutex
	fired map[alertKey]bool
}

// NewAlertService 创建提醒服务，senders 中缺少的渠道只记录日志
func NewAlertService(senders map[models.AlertMethod]AlertSender, log logrus.FieldLogger) *AlertService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if senders == nil {
		senders = map[models.AlertMethod]AlertSender{}
	}
	return &AlertService{senders: senders, log: log, fired: make(map[alertKey]bool)}
}

// Check 根据预算状态判断是否需要提醒，返回本次发出的提醒级别
func (s *AlertService) Check(ctx context.Context, st report.BudgetStatus) []AlertLevel {
	levels := s.pending(st)
	for _, level := range levels {
		s.dispatch(ctx, BudgetAlert{Level: level, Status: st})
	}
	return levels
}

// pending 计算需要发出的提醒并标记为已发出
func (s *AlertService) pending(st report.BudgetStatus) []AlertLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := st.Budget
	key := func(l AlertLevel) alertKey { return alertKey{budgetID: b.ID, month: b.Month, level: l} }

	if !st.AlertReached && !st.OverBudget {
		delete(s.fired, key(AlertThresholdReached))
		delete(s.fired, key(AlertOverBudget))
		return nil
	}
	if !st.OverBudget {
		delete(s.fired, key(AlertOverBudget))
	}

	var out []AlertLevel
	if st.OverBudget {
		if !s.fired[key(AlertOverBudget)] {
			out = append(out, AlertOverBudget)
		}
		// 直接超支时不再补发阈值提醒
		s.fired[key(AlertThresholdReached)] = true
		s.fired[key(AlertOverBudget)] = true
		return out
	}
	if !s.fired[key(AlertThresholdReached)] {
		out = append(out, AlertThresholdReached)
		s.fired[key(AlertThresholdReached)] = true
	}
	return out
}

func (s *AlertService) dispatch(ctx context.Context, alert BudgetAlert) {
	b := alert.Status.Budget
	log := s.log.WithFields(logrus.Fields{
		"budget_id": b.ID,
		"category":  b.Category,
		"month":     b.Month,
		"level":     alert.Level,
		"progress":  alert.Status.Progress,
	})
	for _, method := range b.AlertMethods {
		sender, ok := s.senders[method]
		if !ok {
			log.WithField("method", method).Warn("提醒渠道未配置，跳过")
			continue
		}
		if err := sender.SendBudgetAlert(ctx, alert); err != nil {
			log.WithField("method", method).WithError(err).Error("预算提醒发送失败")
			continue
		}
		log.WithField("method", method).Info("预算提醒已发送")
	}
}

// LogSender 仅记录日志的渠道，用于尚未接入的短信
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) SendBudgetAlert(_ context.Context, alert BudgetAlert) error {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"budget_id": alert.Status.Budget.ID,
		"level":     alert.Level,
	}).Info("短信提醒暂未接入，仅记录日志")
	return nil
}

// alertMessage 提醒正文（纯文本）
func alertMessage(alert BudgetAlert) string {
	st := alert.Status
	b := st.Budget
	if alert.Level == AlertOverBudget {
		return "【预算超支】" + b.Category + " " + b.Month + " 已支出 " + st.Spent.StringFixed(2) +
			"，超出预算 " + st.Spent.Sub(b.MonthlyLimit).StringFixed(2)
	}
	return "【预算提醒】" + b.Category + " " + b.Month + " 已支出 " + st.Spent.StringFixed(2) +
		" / " + b.MonthlyLimit.StringFixed(2) + "，剩余 " + st.Remaining.StringFixed(2)
}
