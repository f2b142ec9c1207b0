package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal 储蓄目标
type SavingsGoal struct {
	ID            int             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name          string          `json:"name" gorm:"size:100;not null"`
	TargetAmount  decimal.Decimal `json:"targetAmount" gorm:"type:decimal(12,2);not null"`
	CurrentAmount decimal.Decimal `json:"currentAmount" gorm:"type:decimal(12,2);not null"`
	Deadline      time.Time       `json:"deadline" gorm:"not null"`
}

func (SavingsGoal) TableName() string {
	return "savings_goals"
}

func (g *SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid("name", "名称不能为空")
	}
	if !g.TargetAmount.IsPositive() {
		return invalid("targetAmount", "目标金额必须大于 0")
	}
	if g.CurrentAmount.IsNegative() {
		return invalid("currentAmount", "当前金额不能为负数")
	}
	if g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return invalid("currentAmount", "当前金额不能超过目标金额")
	}
	if g.Deadline.IsZero() {
		return invalid("deadline", "截止日期不能为空")
	}
	return nil
}

// Contribute 追加存入金额，超过目标金额时拒绝且不修改当前金额
func (g *SavingsGoal) Contribute(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "存入金额必须大于 0")
	}
	next := g.CurrentAmount.Add(amount)
	if next.GreaterThan(g.TargetAmount) {
		return invalid("amount", "存入后将超过目标金额")
	}
	g.CurrentAmount = next
	return nil
}
