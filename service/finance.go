package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"smartbudget/backend"
	"smartbudget/events"
	"smartbudget/models"
	"smartbudget/report"
	"smartbudget/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FinanceService 交易、类别、预算、储蓄目标的业务校验与编排
type FinanceService struct {
	stores    *backend.Stores
	alerts    *AlertService
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time

	// 唯一性检查与写入需在同一临界区内完成
	budgetMu   sync.Mutex
	categoryMu sync.Mutex

	alertWG sync.WaitGroup
}

// NewFinanceService 创建业务服务，alerts、publisher 可为 nil
func NewFinanceService(stores *backend.Stores, alerts *AlertService, publisher events.Publisher, log logrus.FieldLogger) *FinanceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FinanceService{
		stores:    stores,
		alerts:    alerts,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CurrentMonth 当前月份键
func (s *FinanceService) CurrentMonth() string {
	return report.MonthKey(s.now())
}

// Now 服务使用的当前时间
func (s *FinanceService) Now() time.Time {
	return s.now()
}

// Wait 等待进行中的预算提醒发送完成
func (s *FinanceService) Wait() {
	s.alertWG.Wait()
}

// notify 在后台执行提醒检查，写请求不等待邮件或推送的结果
func (s *FinanceService) notify(ctx context.Context, fn func(ctx context.Context)) {
	if s.alerts == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.alertWG.Add(1)
	go func() {
		defer s.alertWG.Done()
		fn(ctx)
	}()
}

func (s *FinanceService) publish(ctx context.Context, entity string, action events.Action, id int) {
	s.publisher.Publish(ctx, events.NewRecordEvent(entity, action, id))
}

// ---------- 交易 ----------

// TransactionFilter 交易筛选条件，零值表示不限
type TransactionFilter struct {
	Type     models.TransactionType
	Category string
	Start    time.Time
	End      time.Time
}

func (f TransactionFilter) match(t models.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.Start.IsZero() && t.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && t.Date.After(f.End) {
		return false
	}
	return true
}

// ListTransactions 按日期倒序返回符合条件的交易
func (s *FinanceService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	all, err := s.stores.Transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(all))
	for _, t := range all {
		if filter.match(t) {
			out = append(out, t)
		}
	}
	sortByDateDesc(out)
	return out, nil
}

func sortByDateDesc(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].Date.After(txs[j].Date)
	})
}

func (s *FinanceService) GetTransaction(ctx context.Context, id int) (models.Transaction, error) {
	return s.stores.Transactions.GetByID(ctx, id)
}

// CreateTransaction 校验后创建交易；支出会触发对应预算的提醒检查
func (s *FinanceService) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.Description = strings.TrimSpace(tx.Description)
	if err := tx.Validate(); err != nil {
		return tx, err
	}
	if err := s.checkCategory(ctx, tx.Category, tx.Type); err != nil {
		return tx, err
	}
	created, err := s.stores.Transactions.Create(ctx, tx)
	if err != nil {
		return created, err
	}
	s.publish(ctx, "transaction", events.ActionCreated, created.ID)
	if created.Type == models.TransactionExpense {
		s.notify(ctx, func(ctx context.Context) {
			s.checkBudgetAlerts(ctx, created.Category, created.Date)
		})
	}
	return created, nil
}

// UpdateTransaction 部分更新交易，合并后的记录需通过完整校验
func (s *FinanceService) UpdateTransaction(ctx context.Context, id int, patch store.Patch) (models.Transaction, error) {
	current, err := s.stores.Transactions.GetByID(ctx, id)
	if err != nil {
		return current, err
	}
	merged, _, err := store.Transactions.Merge(current, patch)
	if err != nil {
		return current, err
	}
	if err := merged.Validate(); err != nil {
		return current, err
	}
	// 类别被删除后，旧交易仍可修改其他字段
	_, hasCategory := patch["category"]
	_, hasType := patch["type"]
	if hasCategory || hasType {
		if err := s.checkCategory(ctx, merged.Category, merged.Type); err != nil {
			return current, err
		}
	}
	updated, err := s.stores.Transactions.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.publish(ctx, "transaction", events.ActionUpdated, id)
	if updated.Type == models.TransactionExpense {
		s.notify(ctx, func(ctx context.Context) {
			s.checkBudgetAlerts(ctx, updated.Category, updated.Date)
		})
	}
	return updated, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id int) error {
	if err := s.stores.Transactions.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "transaction", events.ActionDeleted, id)
	return nil
}

// checkCategory 类别必须存在且类型与交易类型一致
func (s *FinanceService) checkCategory(ctx context.Context, name string, typ models.TransactionType) error {
	cats, err := s.stores.Categories.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.Name == name {
			if c.Type != typ {
				return models.NewValidationError("category", "类别 "+name+" 不是"+typeLabel(typ)+"类别")
			}
			return nil
		}
	}
	return models.NewValidationError("category", "类别不存在: "+name)
}

func typeLabel(t models.TransactionType) string {
	if t == models.TransactionIncome {
		return "收入"
	}
	return "支出"
}

// checkBudgetAlerts 重新计算 date 所在月该类别预算的状态并交给提醒服务；失败只记日志
func (s *FinanceService) checkBudgetAlerts(ctx context.Context, category string, date time.Time) {
	if s.alerts == nil {
		return
	}
	month := report.MonthKey(date)
	budgets, err := s.stores.Budgets.GetAll(ctx)
	if err != nil {
		s.log.WithError(err).Warn("预算提醒检查失败")
		return
	}
	for _, b := range budgets {
		if b.Category != category || b.Month != month {
			continue
		}
		txs, err := s.stores.Transactions.GetAll(ctx)
		if err != nil {
			s.log.WithError(err).Warn("预算提醒检查失败")
			return
		}
		s.alerts.Check(ctx, report.EvaluateBudget(b, txs, date))
		return
	}
}

// ---------- 类别 ----------

// ListCategories typ 为空时返回全部
func (s *FinanceService) ListCategories(ctx context.Context, typ models.TransactionType) ([]models.Category, error) {
	all, err := s.stores.Categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return all, nil
	}
	out := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *FinanceService) GetCategory(ctx context.Context, id int) (models.Category, error) {
	return s.stores.Categories.GetByID(ctx, id)
}

func (s *FinanceService) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return c, err
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()
	if err := s.checkCategoryName(ctx, c.Name, 0); err != nil {
		return c, err
	}
	created, err := s.stores.Categories.Create(ctx, c)
	if err != nil {
		return created, err
	}
	s.publish(ctx, "category", events.ActionCreated, created.ID)
	return created, nil
}

func (s *FinanceService) UpdateCategory(ctx context.Context, id int, patch store.Patch) (models.Category, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	current, err := s.stores.Categories.GetByID(ctx, id)
	if err != nil {
		return current, err
	}
	merged, _, err := store.Categories.Merge(current, patch)
	if err != nil {
		return current, err
	}
	if err := merged.Validate(); err != nil {
		return current, err
	}
	if err := s.checkCategoryName(ctx, merged.Name, id); err != nil {
		return current, err
	}
	updated, err := s.stores.Categories.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.publish(ctx, "category", events.ActionUpdated, id)
	return updated, nil
}

// DeleteCategory 只删除类别本身，引用它的交易和预算保持不变
func (s *FinanceService) DeleteCategory(ctx context.Context, id int) error {
	if err := s.stores.Categories.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "category", events.ActionDeleted, id)
	return nil
}

// checkCategoryName 名称唯一（不区分大小写），exceptID 为正在修改的类别
func (s *FinanceService) checkCategoryName(ctx context.Context, name string, exceptID int) error {
	cats, err := s.stores.Categories.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return models.NewValidationError("name", "类别名称已存在: "+name)
		}
	}
	return nil
}

// ---------- 预算 ----------

// ListBudgets 返回指定月份的预算，month 为空时使用当前月份
func (s *FinanceService) ListBudgets(ctx context.Context, month string) ([]models.Budget, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	all, err := s.stores.Budgets.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Budget, 0, len(all))
	for _, b := range all {
		if b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *FinanceService) GetBudget(ctx context.Context, id int) (models.Budget, error) {
	return s.stores.Budgets.GetByID(ctx, id)
}

// CreateBudget 校验后创建预算；同一类别同一月份只能有一个预算
func (s *FinanceService) CreateBudget(ctx context.Context, b models.Budget) (models.Budget, error) {
	if b.Month == "" {
		b.Month = s.CurrentMonth()
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = models.DefaultAlertThreshold
	}
	if b.AlertMethods == nil {
		b.AlertMethods = models.DefaultAlertMethods()
	}
	if err := b.Validate(); err != nil {
		return b, err
	}

	s.budgetMu.Lock()
	defer s.budgetMu.Unlock()
	snap, err := s.load(ctx, loadBudgets|loadCategories|loadTransactions)
	if err != nil {
		return b, err
	}
	if err := expenseCategory(snap.categories, b.Category); err != nil {
		return b, err
	}
	if duplicateBudget(snap.budgets, b.Category, b.Month, 0) {
		return b, models.NewValidationError("category", "该类别本月已设置预算")
	}

	month, _ := report.ParseMonth(b.Month)
	st := report.EvaluateBudget(b, snap.transactions, month)
	b.Spent = st.Spent

	created, err := s.stores.Budgets.Create(ctx, b)
	if err != nil {
		return created, err
	}
	s.publish(ctx, "budget", events.ActionCreated, created.ID)
	st.Budget = created
	s.notify(ctx, func(ctx context.Context) {
		s.alerts.Check(ctx, st)
	})
	return created, nil
}

// UpdateBudget 部分更新预算
func (s *FinanceService) UpdateBudget(ctx context.Context, id int, patch store.Patch) (models.Budget, error) {
	s.budgetMu.Lock()
	defer s.budgetMu.Unlock()

	current, err := s.stores.Budgets.GetByID(ctx, id)
	if err != nil {
		return current, err
	}
	merged, _, err := store.Budgets.Merge(current, patch)
	if err != nil {
		return current, err
	}
	if err := merged.Validate(); err != nil {
		return current, err
	}
	if merged.Category != current.Category || merged.Month != current.Month {
		snap, err := s.load(ctx, loadBudgets|loadCategories)
		if err != nil {
			return current, err
		}
		if err := expenseCategory(snap.categories, merged.Category); err != nil {
			return current, err
		}
		if duplicateBudget(snap.budgets, merged.Category, merged.Month, id) {
			return current, models.NewValidationError("category", "该类别本月已设置预算")
		}
	}
	updated, err := s.stores.Budgets.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.publish(ctx, "budget", events.ActionUpdated, id)
	return updated, nil
}

// UpdateBudgetAlerts 修改提醒阈值与提醒方式
func (s *FinanceService) UpdateBudgetAlerts(ctx context.Context, id, threshold int, methods []models.AlertMethod) (models.Budget, error) {
	if methods == nil {
		methods = []models.AlertMethod{}
	}
	return s.UpdateBudget(ctx, id, store.Patch{"alertThreshold": threshold, "alertMethods": methods})
}

func (s *FinanceService) DeleteBudget(ctx context.Context, id int) error {
	if err := s.stores.Budgets.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "budget", events.ActionDeleted, id)
	return nil
}

// BudgetStatuses 计算指定月份（默认当前月）所有预算的执行情况，并刷新缓存的 spent
func (s *FinanceService) BudgetStatuses(ctx context.Context, month string) ([]report.BudgetStatus, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	start, err := report.ParseMonth(month)
	if err != nil {
		return nil, models.NewValidationError("month", "月份格式错误，应为: 2006-01")
	}
	snap, err := s.load(ctx, loadBudgets|loadTransactions)
	if err != nil {
		return nil, err
	}
	out := []report.BudgetStatus{}
	for _, b := range snap.budgets {
		if b.Month != month {
			continue
		}
		st := report.EvaluateBudget(b, snap.transactions, start)
		if !b.Spent.Equal(st.Spent) {
			s.refreshSpent(ctx, b.ID, st.Spent)
		}
		out = append(out, st)
	}
	return out, nil
}

// refreshSpent 更新缓存的 spent，失败不影响查询结果
func (s *FinanceService) refreshSpent(ctx context.Context, id int, spent decimal.Decimal) {
	if _, err := s.stores.Budgets.Update(ctx, id, store.Patch{"spent": spent}); err != nil {
		s.log.WithError(err).WithField("budget_id", id).Warn("刷新预算已支出缓存失败")
	}
}

// AvailableCategories 指定月份尚未设置预算的支出类别
func (s *FinanceService) AvailableCategories(ctx context.Context, month string) ([]models.Category, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	snap, err := s.load(ctx, loadBudgets|loadCategories)
	if err != nil {
		return nil, err
	}
	out := []models.Category{}
	for _, c := range snap.categories {
		if c.Type == models.TransactionExpense && !duplicateBudget(snap.budgets, c.Name, month, 0) {
			out = append(out, c)
		}
	}
	return out, nil
}

func expenseCategory(cats []models.Category, name string) error {
	for _, c := range cats {
		if c.Name == name {
			if c.Type != models.TransactionExpense {
				return models.NewValidationError("category", "预算只能设置在支出类别上")
			}
			return nil
		}
	}
	return models.NewValidationError("category", "类别不存在: "+name)
}

func duplicateBudget(budgets []models.Budget, category, month string, exceptID int) bool {
	for _, b := range budgets {
		if b.ID != exceptID && b.Category == category && b.Month == month {
			return true
		}
	}
	return false
}

// ---------- 储蓄目标 ----------

func (s *FinanceService) ListGoals(ctx context.Context) ([]models.SavingsGoal, error) {
	return s.stores.Goals.GetAll(ctx)
}

func (s *FinanceService) GetGoal(ctx context.Context, id int) (models.SavingsGoal, error) {
	return s.stores.Goals.GetByID(ctx, id)
}

func (s *FinanceService) CreateGoal(ctx context.Context, g models.SavingsGoal) (models.SavingsGoal, error) {
	g.Name = strings.TrimSpace(g.Name)
	if err := g.Validate(); err != nil {
		return g, err
	}
	created, err := s.stores.Goals.Create(ctx, g)
	if err != nil {
		return created, err
	}
	s.publish(ctx, "goal", events.ActionCreated, created.ID)
	return created, nil
}

func (s *FinanceService) UpdateGoal(ctx context.Context, id int, patch store.Patch) (models.SavingsGoal, error) {
	current, err := s.stores.Goals.GetByID(ctx, id)
	if err != nil {
		return current, err
	}
	merged, _, err := store.Goals.Merge(current, patch)
	if err != nil {
		return current, err
	}
	if err := merged.Validate(); err != nil {
		return current, err
	}
	updated, err := s.stores.Goals.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	s.publish(ctx, "goal", events.ActionUpdated, id)
	return updated, nil
}

func (s *FinanceService) DeleteGoal(ctx context.Context, id int) error {
	if err := s.stores.Goals.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "goal", events.ActionDeleted, id)
	return nil
}

// Contribute 向储蓄目标存入金额，超过目标金额时拒绝且不写入
func (s *FinanceService) Contribute(ctx context.Context, id int, amount decimal.Decimal) (models.SavingsGoal, error) {
	g, err := s.stores.Goals.GetByID(ctx, id)
	if err != nil {
		return g, err
	}
	if err := g.Contribute(amount); err != nil {
		return g, err
	}
	updated, err := s.stores.Goals.Update(ctx, id, store.Patch{"currentAmount": g.CurrentAmount})
	if err != nil {
		return updated, err
	}
	s.publish(ctx, "goal", events.ActionContributed, id)
	return updated, nil
}

func (s *FinanceService) GoalStatuses(ctx context.Context) ([]report.GoalStatus, error) {
	goals, err := s.stores.Goals.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]report.GoalStatus, 0, len(goals))
	for _, g := range goals {
		out = append(out, report.EvaluateGoal(g, now))
	}
	return out, nil
}

// ---------- 报表 ----------

func (s *FinanceService) Summary(ctx context.Context, start, end time.Time) (report.Summary, error) {
	txs, err := s.stores.Transactions.GetAll(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(txs, start, end), nil
}

func (s *FinanceService) CategoryBreakdown(ctx context.Context, start, end time.Time, typ models.TransactionType) ([]report.CategoryTotal, error) {
	txs, err := s.stores.Transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return report.BreakdownByCategory(txs, start, end, typ), nil
}

func (s *FinanceService) Trend(ctx context.Context, months int) ([]report.MonthTrend, error) {
	txs, err := s.stores.Transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return report.Trend(txs, months, s.now()), nil
}

func (s *FinanceService) CategoryTrend(ctx context.Context, category string, months int) ([]report.CategoryMonth, error) {
	txs, err := s.stores.Transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return report.CategoryTrend(txs, category, months, s.now()), nil
}

// DashboardView 首页数据
type DashboardView struct {
	report.Dashboard
	RecentTransactions []models.Transaction  `json:"recentTransactions"`
	Budgets            []report.BudgetStatus `json:"budgets"`
	Goals              []report.GoalStatus   `json:"goals"`
}

// recentLimit 首页展示的最近交易条数
const recentLimit = 5

// Dashboard 当月概览、最近交易、本月预算和储蓄目标
func (s *FinanceService) Dashboard(ctx context.Context) (*DashboardView, error) {
	snap, err := s.load(ctx, loadTransactions|loadBudgets|loadGoals)
	if err != nil {
		return nil, err
	}
	now := s.now()
	view := &DashboardView{
		Dashboard: report.BuildDashboard(snap.transactions, snap.budgets, now),
		Budgets:   []report.BudgetStatus{},
		Goals:     make([]report.GoalStatus, 0, len(snap.goals)),
	}

	recent := append([]models.Transaction(nil), snap.transactions...)
	sortByDateDesc(recent)
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	view.RecentTransactions = recent

	month := report.MonthKey(now)
	for _, b := range snap.budgets {
		if b.Month == month {
			view.Budgets = append(view.Budgets, report.EvaluateBudget(b, snap.transactions, now))
		}
	}
	for _, g := range snap.goals {
		view.Goals = append(view.Goals, report.EvaluateGoal(g, now))
	}
	return view, nil
}

// ---------- 并发加载 ----------

type loadMask uint8

const (
	loadTransactions loadMask = 1 << iota
	loadBudgets
	loadCategories
	loadGoals
)

type snapshot struct {
	transactions []models.Transaction
	budgets      []models.Budget
	categories   []models.Category
	goals        []models.SavingsGoal
}

// load 并发读取 mask 指定的集合，任一失败则整体失败
func (s *FinanceService) load(ctx context.Context, mask loadMask) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	if mask&loadTransactions != 0 {
		g.Go(func() (err error) {
			snap.transactions, err = s.stores.Transactions.GetAll(gctx)
			return err
		})
	}
	if mask&loadBudgets != 0 {
		g.Go(func() (err error) {
			snap.budgets, err = s.stores.Budgets.GetAll(gctx)
			return err
		})
	}
	if mask&loadCategories != 0 {
		g.Go(func() (err error) {
			snap.categories, err = s.stores.Categories.GetAll(gctx)
			return err
		})
	}
	if mask&loadGoals != 0 {
		g.Go(func() (err error) {
			snap.goals, err = s.stores.Goals.GetAll(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
