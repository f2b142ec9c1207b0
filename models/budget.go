package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AlertMethod 预算提醒方式
type AlertMethod string

const (
	AlertEmail AlertMethod = "email"
	AlertPush  AlertMethod = "push"
	AlertSMS   AlertMethod = "sms"
)

func (m AlertMethod) Valid() bool {
	switch m {
	case AlertEmail, AlertPush, AlertSMS:
		return true
	}
	return false
}

const (
	// DefaultAlertThreshold 新建预算默认的提醒阈值（百分比）
	DefaultAlertThreshold = 80
	MinAlertThreshold     = 50
	MaxAlertThreshold     = 95
)

// DefaultAlertMethods 新建预算默认的提醒方式
func DefaultAlertMethods() []AlertMethod {
	return []AlertMethod{AlertEmail, AlertPush}
}

// Budget 月度类别预算
type Budget struct {
	ID             int             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Category       string          `json:"category" gorm:"size:50;not null;uniqueIndex:idx_budget_category_month"`
	MonthlyLimit   decimal.Decimal `json:"monthlyLimit" gorm:"type:decimal(12,2);not null"`
	Spent          decimal.Decimal `json:"spent" gorm:"type:decimal(12,2);not null"` // 缓存值，以实时计算为准
	Month          string          `json:"month" gorm:"size:7;not null;uniqueIndex:idx_budget_category_month"`
	AlertThreshold int             `json:"alertThreshold" gorm:"not null"`
	AlertMethods   []AlertMethod   `json:"alertMethods" gorm:"serializer:json;size:100"`
}

func (Budget) TableName() string {
	return "budgets"
}

// HasAlertMethod 是否开启了指定提醒方式
func (b *Budget) HasAlertMethod(m AlertMethod) bool {
	for _, v := range b.AlertMethods {
		if v == m {
			return true
		}
	}
	return false
}

func (b *Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category", "类别不能为空")
	}
	if !b.MonthlyLimit.IsPositive() {
		return invalid("monthlyLimit", "预算金额必须大于 0")
	}
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return invalid("month", "月份格式错误，应为: 2006-01")
	}
	if b.AlertThreshold < MinAlertThreshold || b.AlertThreshold > MaxAlertThreshold {
		return invalid("alertThreshold", "提醒阈值必须在 50 到 95 之间")
	}
	seen := make(map[AlertMethod]bool, len(b.AlertMethods))
	for _, m := range b.AlertMethods {
		if !m.Valid() {
			return invalid("alertMethods", "不支持的提醒方式: "+string(m))
		}
		if seen[m] {
			return invalid("alertMethods", "提醒方式重复: "+string(m))
		}
		seen[m] = true
	}
	return nil
}
