package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType 交易类型
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid 是否为合法的交易类型
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction 交易记录模型
type Transaction struct {
	ID          int             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Type        TransactionType `json:"type" gorm:"size:20;not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Category    string          `json:"category" gorm:"size:50;not null;index"`
	Date        time.Time       `json:"date" gorm:"not null;index"`
	Description string          `json:"description" gorm:"size:255"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

// Validate 校验交易字段（类别是否存在由业务层校验）
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return invalid("type", "交易类型必须为 income 或 expense")
	}
	if !t.Amount.IsPositive() {
		return invalid("amount", "金额必须大于 0")
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", "类别不能为空")
	}
	if t.Date.IsZero() {
		return invalid("date", "日期不能为空")
	}
	return nil
}
