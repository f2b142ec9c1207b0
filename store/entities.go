package store

import (
	"strings"

	"smartbudget/models"
)

// Transactions 交易实体配置
var Transactions = Entity[models.Transaction]{
	Name:  "transaction",
	Table: "transactions",
	Fields: []Field{
		{Name: "type", Column: "type", Remote: "type_c"},
		{Name: "amount", Column: "amount", Remote: "amount_c"},
		{Name: "category", Column: "category", Remote: "category_c"},
		{Name: "date", Column: "date", Remote: "date_c"},
		{Name: "description", Column: "description", Remote: "description_c"},
	},
	ID:    func(t *models.Transaction) int { return t.ID },
	SetID: func(t *models.Transaction, id int) { t.ID = id },
}

// Budgets 预算实体配置，新建时默认阈值 80、提醒方式 email+push
var Budgets = Entity[models.Budget]{
	Name:  "budget",
	Table: "budgets",
	Fields: []Field{
		{Name: "category", Column: "category", Remote: "category_c"},
		{Name: "monthlyLimit", Column: "monthly_limit", Remote: "monthly_limit_c"},
		{Name: "spent", Column: "spent", Remote: "spent_c"},
		{Name: "month", Column: "month", Remote: "month_c"},
		{Name: "alertThreshold", Column: "alert_threshold", Remote: "alert_threshold_c"},
		{Name: "alertMethods", Column: "alert_methods", Remote: "alert_methods_c", ToRemote: joinList, FromRemote: splitList},
	},
	ID:    func(b *models.Budget) int { return b.ID },
	SetID: func(b *models.Budget, id int) { b.ID = id },
	Defaults: func(b *models.Budget) {
		if b.AlertThreshold == 0 {
			b.AlertThreshold = models.DefaultAlertThreshold
		}
		if b.AlertMethods == nil {
			b.AlertMethods = models.DefaultAlertMethods()
		}
	},
	Clone: func(b models.Budget) models.Budget {
		if b.AlertMethods != nil {
			b.AlertMethods = append([]models.AlertMethod(nil), b.AlertMethods...)
		}
		return b
	},
}

// Categories 类别实体配置
var Categories = Entity[models.Category]{
	Name:  "category",
	Table: "categories",
	Fields: []Field{
		{Name: "name", Column: "name", Remote: "Name"},
		{Name: "type", Column: "type", Remote: "type_c"},
	},
	ID:    func(c *models.Category) int { return c.ID },
	SetID: func(c *models.Category, id int) { c.ID = id },
}

// Goals 储蓄目标实体配置
var Goals = Entity[models.SavingsGoal]{
	Name:  "savings goal",
	Table: "savings_goals",
	Fields: []Field{
		{Name: "name", Column: "name", Remote: "Name"},
		{Name: "targetAmount", Column: "target_amount", Remote: "target_amount_c"},
		{Name: "currentAmount", Column: "current_amount", Remote: "current_amount_c"},
		{Name: "deadline", Column: "deadline", Remote: "deadline_c"},
	},
	ID:    func(g *models.SavingsGoal) int { return g.ID },
	SetID: func(g *models.SavingsGoal, id int) { g.ID = id },
}

// joinList 记录服务的多选字段以逗号分隔字符串保存
func joinList(v any) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

func splitList(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
