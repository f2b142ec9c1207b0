package report

import (
	"sort"
	"time"

	"smartbudget/models"

	"github.com/shopspring/decimal"
)

// DefaultMonthCount 趋势默认覆盖的月份数
const DefaultMonthCount = 6

var hundred = decimal.NewFromInt(100)

// Summary 区间收支汇总
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// CategoryTotal 单个分类的汇总
type CategoryTotal struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Average    decimal.Decimal `json:"average"`
	Percentage float64         `json:"percentage"`
}

// MonthTrend 单月收支
type MonthTrend struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// BudgetStatus 预算执行情况。Progress 用于展示，最大 100；OverBudget 按未截断的金额判断
type BudgetStatus struct {
	Budget       models.Budget   `json:"budget"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Progress     float64         `json:"progress"`
	OverBudget   bool            `json:"overBudget"`
	AlertReached bool            `json:"alertReached"`
}

// GoalStatus 储蓄目标进度
type GoalStatus struct {
	Goal      models.SavingsGoal `json:"goal"`
	Progress  float64            `json:"progress"`
	Remaining decimal.Decimal    `json:"remaining"`
	Completed bool               `json:"completed"`
	Overdue   bool               `json:"overdue"`
}

// Dashboard 当月概览
type Dashboard struct {
	Month            string          `json:"month"`
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Balance          decimal.Decimal `json:"balance"`
	BudgetLimit      decimal.Decimal `json:"budgetLimit"`
	RemainingBudget  decimal.Decimal `json:"remainingBudget"`
	TransactionCount int             `json:"transactionCount"`
}

// CategoryMonth 单个分类某月的支出
type CategoryMonth struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Summarize 统计 [start, end] 内的收入、支出与净额
func Summarize(txs []models.Transaction, start, end time.Time) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		if !within(t.Date, start, end) {
			continue
		}
		s.Count++
		switch t.Type {
		case models.TransactionIncome:
			s.Income = s.Income.Add(t.Amount)
		case models.TransactionExpense:
			s.Expense = s.Expense.Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// BreakdownByCategory 按分类汇总 [start, end] 内指定类型的交易，按金额降序；无数据时返回空切片
func BreakdownByCategory(txs []models.Transaction, start, end time.Time, typ models.TransactionType) []CategoryTotal {
	if typ == "" {
		typ = models.TransactionExpense
	}
	index := make(map[string]int)
	out := []CategoryTotal{}
	total := decimal.Zero
	for _, t := range txs {
		if t.Type != typ || !within(t.Date, start, end) {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryTotal{Category: t.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
		out[i].Count++
		total = total.Add(t.Amount)
	}
	for i := range out {
		out[i].Average = out[i].Amount.Div(decimal.NewFromInt(int64(out[i].Count)))
		out[i].Percentage = percent(out[i].Amount, total)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// Trend 返回截至 now 所在月的最近 monthCount 个月（从早到晚）的收支
func Trend(txs []models.Transaction, monthCount int, now time.Time) []MonthTrend {
	if monthCount <= 0 {
		monthCount = DefaultMonthCount
	}
	out := make([]MonthTrend, 0, monthCount)
	for i := monthCount - 1; i >= 0; i-- {
		start, end := MonthRange(AddMonths(now, -i))
		s := Summarize(txs, start, end)
		out = append(out, MonthTrend{
			Month:   MonthKey(start),
			Income:  s.Income,
			Expense: s.Expense,
			Net:     s.Net,
			Count:   s.Count,
		})
	}
	return out
}

// CategoryTrend 某分类最近 monthCount 个月的支出
func CategoryTrend(txs []models.Transaction, category string, monthCount int, now time.Time) []CategoryMonth {
	if monthCount <= 0 {
		monthCount = DefaultMonthCount
	}
	out := make([]CategoryMonth, 0, monthCount)
	for i := monthCount - 1; i >= 0; i-- {
		start, end := MonthRange(AddMonths(now, -i))
		out = append(out, CategoryMonth{
			Month:  MonthKey(start),
			Amount: SpentIn(txs, category, start, end),
		})
	}
	return out
}

// SpentIn 某分类在 [start, end] 内的支出合计
func SpentIn(txs []models.Transaction, category string, start, end time.Time) decimal.Decimal {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Type == models.TransactionExpense && t.Category == category && within(t.Date, start, end) {
			spent = spent.Add(t.Amount)
		}
	}
	return spent
}

// EvaluateBudget 计算预算在 month 所在自然月的执行情况
func EvaluateBudget(b models.Budget, txs []models.Transaction, month time.Time) BudgetStatus {
	start, end := MonthRange(month)
	spent := SpentIn(txs, b.Category, start, end)
	progress := percent(spent, b.MonthlyLimit)

	b.Spent = spent
	return BudgetStatus{
		Budget:       b,
		Spent:        spent,
		Remaining:    b.MonthlyLimit.Sub(spent),
		Progress:     clamp(progress),
		OverBudget:   spent.GreaterThan(b.MonthlyLimit),
		AlertReached: b.AlertThreshold > 0 && progress >= float64(b.AlertThreshold),
	}
}

// EvaluateGoal 计算储蓄目标进度，now 之前到期且未完成视为逾期
func EvaluateGoal(g models.SavingsGoal, now time.Time) GoalStatus {
	completed := g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return GoalStatus{
		Goal:      g,
		Progress:  clamp(percent(g.CurrentAmount, g.TargetAmount)),
		Remaining: remaining,
		Completed: completed,
		Overdue:   !completed && g.Deadline.Before(now),
	}
}

// BuildDashboard 汇总 now 所在月的收支以及该月预算剩余额度（预算总额减去当月支出）
func BuildDashboard(txs []models.Transaction, budgets []models.Budget, now time.Time) Dashboard {
	start, end := MonthRange(now)
	key := MonthKey(now)
	s := Summarize(txs, start, end)

	limit := decimal.Zero
	for _, b := range budgets {
		if b.Month == key {
			limit = limit.Add(b.MonthlyLimit)
		}
	}
	return Dashboard{
		Month:            key,
		Income:           s.Income,
		Expenses:         s.Expense,
		Balance:          s.Net,
		BudgetLimit:      limit,
		RemainingBudget:  limit.Sub(s.Expense),
		TransactionCount: s.Count,
	}
}

// PeriodStart 报表周期的起始时间：1month 为本月初，3months、6months 分别回溯 2、5 个月；其他值按 6months 处理
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case "1month":
		return AddMonths(now, 0)
	case "3months":
		return AddMonths(now, -2)
	default:
		return AddMonths(now, -5)
	}
}

// percent 返回 part / whole * 100，分母为 0 时返回 0
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}

func clamp(p float64) float64 {
	if p > 100 {
		return 100
	}
	return p
}
