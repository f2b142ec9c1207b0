package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smartbudget/backend"
	"smartbudget/events"
	"smartbudget/models"
	"smartbudget/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func march(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.Local) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RecordEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.RecordEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.RoutingKey())
	}
	return out
}

type recordingSender struct {
	mu     sync.Mutex
	alerts []BudgetAlert
	err    error
}

func (r *recordingSender) SendBudgetAlert(_ context.Context, a BudgetAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

type fixture struct {
	svc    *FinanceService
	stores *backend.Stores
	pub    *recordingPublisher
	email  *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := &backend.Stores{
		Transactions: store.NewMemoryStore(store.Transactions, []models.Transaction{
			{ID: 1, Type: models.TransactionExpense, Category: "Food", Amount: dec(50), Date: march(5)},
			{ID: 2, Type: models.TransactionExpense, Category: "Food", Amount: dec(30), Date: march(10)},
			{ID: 3, Type: models.TransactionIncome, Category: "Salary", Amount: dec(1000), Date: march(1)},
		}),
		Budgets: store.NewMemoryStore(store.Budgets, []models.Budget{
			{ID: 1, Category: "Food", MonthlyLimit: dec(60), Month: "2024-03", AlertThreshold: 80, AlertMethods: []models.AlertMethod{models.AlertEmail}},
		}),
		Categories: store.NewMemoryStore(store.Categories, []models.Category{
			{ID: 1, Name: "Salary", Type: models.TransactionIncome},
			{ID: 2, Name: "Food", Type: models.TransactionExpense},
			{ID: 3, Name: "Transport", Type: models.TransactionExpense},
		}),
		Goals: store.NewMemoryStore(store.Goals, []models.SavingsGoal{
			{ID: 1, Name: "Bike", TargetAmount: dec(500), CurrentAmount: dec(450), Deadline: time.Date(2024, 12, 31, 0, 0, 0, 0, time.Local)},
		}),
	}
	pub := &recordingPublisher{}
	email := &recordingSender{}
	alerts := NewAlertService(map[models.AlertMethod]AlertSender{models.AlertEmail: email}, nil)
	svc := NewFinanceService(stores, alerts, pub, nil)
	svc.now = func() time.Time { return march(20) }
	return &fixture{svc: svc, stores: stores, pub: pub, email: email}
}

func TestCreateTransaction_Valid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateTransaction(ctx, models.Transaction{
		Type: models.TransactionExpense, Category: "Transport", Amount: dec(12), Date: march(15), Description: "  bus  ",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, created.ID)
	assert.Equal(t, "bus", created.Description)
	assert.Equal(t, []string{"transaction.created"}, f.pub.keys())
}

func TestCreateTransaction_ValidationBeforeStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []models.Transaction{
		{Type: models.TransactionExpense, Category: "Food", Amount: dec(0), Date: march(1)},
		{Type: models.TransactionExpense, Category: "Unknown", Amount: dec(5), Date: march(1)},
		{Type: models.TransactionIncome, Category: "Food", Amount: dec(5), Date: march(1)},
		{Type: models.TransactionExpense, Category: "Food", Amount: dec(5)},
	}
	for _, tx := range cases {
		_, err := f.svc.CreateTransaction(ctx, tx)
		assert.True(t, errors.Is(err, models.ErrValidation), "%+v", tx)
	}
	all, err := f.stores.Transactions.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Empty(t, f.pub.keys())
}

func TestListTransactions_SortedAndFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{2, 1, 3}, []int{list[0].ID, list[1].ID, list[2].ID})

	list, err = f.svc.ListTransactions(ctx, TransactionFilter{Type: models.TransactionExpense, Start: march(6)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ID)
}

func TestUpdateTransaction_InvalidPatchLeavesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateTransaction(ctx, 1, store.Patch{"amount": -5})
	assert.True(t, errors.Is(err, models.ErrValidation))

	got, err := f.svc.GetTransaction(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec(50)))

	updated, err := f.svc.UpdateTransaction(ctx, 1, store.Patch{"description": "lunch"})
	require.NoError(t, err)
	assert.Equal(t, "lunch", updated.Description)
	assert.True(t, updated.Amount.Equal(dec(50)))

	_, err = f.svc.UpdateTransaction(ctx, 99, store.Patch{"description": "x"})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateBudget_DuplicateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBudget(ctx, models.Budget{Category: "Food", MonthlyLimit: dec(100), Month: "2024-03"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))

	all, err := f.stores.Budgets.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBudget_DefaultsAndSpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBudget(ctx, models.Budget{Category: "Transport", MonthlyLimit: dec(100)})
	require.NoError(t, err)
	assert.Equal(t, 2, created.ID)
	assert.Equal(t, "2024-03", created.Month)
	assert.Equal(t, models.DefaultAlertThreshold, created.AlertThreshold)
	assert.Equal(t, models.DefaultAlertMethods(), created.AlertMethods)
	assert.True(t, created.Spent.IsZero())

	// 收入类别不能设置预算
	_, err = f.svc.CreateBudget(ctx, models.Budget{Category: "Salary", MonthlyLimit: dec(100)})
	assert.True(t, errors.Is(err, models.ErrValidation))

	// 阈值超出范围
	_, err = f.svc.CreateBudget(ctx, models.Budget{Category: "Transport", MonthlyLimit: dec(100), Month: "2024-04", AlertThreshold: 99})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestUpdateBudget_MoveOntoExistingMonthRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBudget(ctx, models.Budget{Category: "Food", MonthlyLimit: dec(100), Month: "2024-04"})
	require.NoError(t, err)

	_, err = f.svc.UpdateBudget(ctx, created.ID, store.Patch{"month": "2024-03"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	updated, err := f.svc.UpdateBudget(ctx, created.ID, store.Patch{"monthlyLimit": "250.50"})
	require.NoError(t, err)
	assert.True(t, updated.MonthlyLimit.Equal(decimal.RequireFromString("250.5")))
}

func TestUpdateBudgetAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	updated, err := f.svc.UpdateBudgetAlerts(ctx, 1, 60, []models.AlertMethod{models.AlertPush, models.AlertSMS})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.AlertThreshold)
	assert.Equal(t, []models.AlertMethod{models.AlertPush, models.AlertSMS}, updated.AlertMethods)

	_, err = f.svc.UpdateBudgetAlerts(ctx, 1, 40, nil)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestBudgetStatuses_OverBudgetAndSpentCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses, err := f.svc.BudgetStatuses(ctx, "2024-03")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	st := statuses[0]
	assert.True(t, st.Spent.Equal(dec(80)))
	assert.True(t, st.Remaining.Equal(dec(-20)))
	assert.True(t, st.OverBudget)
	assert.Equal(t, 100.0, st.Progress)

	b, err := f.svc.GetBudget(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.Spent.Equal(dec(80)))

	_, err = f.svc.BudgetStatuses(ctx, "March")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestAvailableCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cats, err := f.svc.AvailableCategories(ctx, "")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Transport", cats[0].Name)

	cats, err = f.svc.AvailableCategories(ctx, "2024-04")
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestExpenseTriggersBudgetAlertOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, models.Transaction{Type: models.TransactionExpense, Category: "Food", Amount: dec(1), Date: march(18)})
	require.NoError(t, err)
	f.svc.Wait()
	_, err = f.svc.CreateTransaction(ctx, models.Transaction{Type: models.TransactionExpense, Category: "Food", Amount: dec(1), Date: march(19)})
	require.NoError(t, err)
	f.svc.Wait()

	require.Len(t, f.email.alerts, 1)
	assert.Equal(t, AlertOverBudget, f.email.alerts[0].Level)
	assert.True(t, f.email.alerts[0].Status.Spent.Equal(dec(81)))
}

func TestContribute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Contribute(ctx, 1, dec(100))
	assert.True(t, errors.Is(err, models.ErrValidation))
	g, err := f.svc.GetGoal(ctx, 1)
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(dec(450)))

	g, err = f.svc.Contribute(ctx, 1, dec(50))
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(dec(500)))

	statuses, err := f.svc.GoalStatuses(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Completed)
	assert.Contains(t, f.pub.keys(), "goal.contributed")
}

func TestCreateGoal_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGoal(ctx, models.SavingsGoal{Name: "Car", TargetAmount: dec(100), CurrentAmount: dec(200), Deadline: march(30)})
	assert.True(t, errors.Is(err, models.ErrValidation))

	g, err := f.svc.CreateGoal(ctx, models.SavingsGoal{Name: " Car ", TargetAmount: dec(100), Deadline: march(30)})
	require.NoError(t, err)
	assert.Equal(t, "Car", g.Name)
	assert.Equal(t, 2, g.ID)
}

func TestCategories_UniqueNameAndNoCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCategory(ctx, models.Category{Name: "food", Type: models.TransactionExpense})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = f.svc.UpdateCategory(ctx, 3, store.Patch{"name": "Food"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	renamed, err := f.svc.UpdateCategory(ctx, 3, store.Patch{"name": "Commute"})
	require.NoError(t, err)
	assert.Equal(t, "Commute", renamed.Name)

	require.NoError(t, f.svc.DeleteCategory(ctx, 2))
	txs, err := f.svc.ListTransactions(ctx, TransactionFilter{Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	budgets, err := f.svc.ListBudgets(ctx, "2024-03")
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	expense, err := f.svc.ListCategories(ctx, models.TransactionExpense)
	require.NoError(t, err)
	assert.Len(t, expense, 1)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03", view.Month)
	assert.True(t, view.Income.Equal(dec(1000)))
	assert.True(t, view.Expenses.Equal(dec(80)))
	assert.True(t, view.RemainingBudget.Equal(dec(-20)))
	assert.Len(t, view.RecentTransactions, 3)
	require.Len(t, view.Budgets, 1)
	assert.True(t, view.Budgets[0].OverBudget)
	require.Len(t, view.Goals, 1)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, end := march(1).AddDate(0, 0, -1), march(31)
	sum, err := f.svc.Summary(ctx, start, end)
	require.NoError(t, err)
	assert.True(t, sum.Net.Equal(dec(920)))

	breakdown, err := f.svc.CategoryBreakdown(ctx, start, end, models.TransactionExpense)
	require.NoError(t, err)
	require.Len(t, breakdown, 1)
	assert.Equal(t, 100.0, breakdown[0].Percentage)

	trend, err := f.svc.Trend(ctx, 3)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	assert.Equal(t, "2024-03", trend[2].Month)

	ct, err := f.svc.CategoryTrend(ctx, "Food", 0)
	require.NoError(t, err)
	assert.Len(t, ct, 6)
}

type failingStore[T any] struct{ store.Store[T] }

func (failingStore[T]) GetAll(context.Context) ([]T, error) {
	return nil, &store.BackendError{Op: "fetch", Err: errors.New("connection refused")}
}

func TestDashboard_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.stores.Goals = failingStore[models.SavingsGoal]{f.stores.Goals}

	_, err := f.svc.Dashboard(context.Background())
	assert.True(t, errors.Is(err, store.ErrBackend))
}

// slowStore 模拟远程后端的往返延迟
type slowStore[T any] struct {
	store.Store[T]
	delay time.Duration
}

func (s slowStore[T]) GetAll(ctx context.Context) ([]T, error) {
	time.Sleep(s.delay)
	return s.Store.GetAll(ctx)
}

func TestCreateBudget_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	f.stores.Budgets = slowStore[models.Budget]{Store: f.stores.Budgets, delay: 5 * time.Millisecond}
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateBudget(ctx, models.Budget{Category: "Transport", MonthlyLimit: dec(100), Month: "2024-03"})
		}(i)
	}
	wg.Wait()
	f.svc.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, models.ErrValidation))
	}
	assert.Equal(t, 1, succeeded)

	budgets, err := f.svc.ListBudgets(ctx, "2024-03")
	require.NoError(t, err)
	count := 0
	for _, b := range budgets {
		if b.Category == "Transport" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreateCategory_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	f.stores.Categories = slowStore[models.Category]{Store: f.stores.Categories, delay: 5 * time.Millisecond}
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.CreateCategory(ctx, models.Category{Name: "Rent", Type: models.TransactionExpense})
		}()
	}
	wg.Wait()

	cats, err := f.svc.ListCategories(ctx, models.TransactionExpense)
	require.NoError(t, err)
	count := 0
	for _, c := range cats {
		if c.Name == "Rent" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestUpdateTransaction_AfterCategoryDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteCategory(ctx, 2))

	// 只修改描述时不再校验类别
	updated, err := f.svc.UpdateTransaction(ctx, 1, store.Patch{"description": "old lunch"})
	require.NoError(t, err)
	assert.Equal(t, "old lunch", updated.Description)
	assert.Equal(t, "Food", updated.Category)

	// 改为已删除的类别仍然被拒绝
	_, err = f.svc.UpdateTransaction(ctx, 3, store.Patch{"category": "Food", "type": "expense"})
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, err = f.svc.UpdateTransaction(ctx, 1, store.Patch{"type": "expense"})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

// blockingSender 在 release 关闭前阻塞，记录发送时 ctx 的状态
type blockingSender struct {
	release chan struct{}
	mu      sync.Mutex
	ctxErrs []error
}

func (b *blockingSender) SendBudgetAlert(ctx context.Context, _ BudgetAlert) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	return nil
}

func TestCreateTransaction_AlertDoesNotBlockWrite(t *testing.T) {
	f := newFixture(t)
	sender := &blockingSender{release: make(chan struct{})}
	f.svc.alerts = NewAlertService(map[models.AlertMethod]AlertSender{models.AlertEmail: sender}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateTransaction(ctx, models.Transaction{Type: models.TransactionExpense, Category: "Food", Amount: dec(1), Date: march(18)})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(sender.release)
		t.Fatal("写入请求等待了提醒发送")
	}

	// 请求结束后取消 ctx，提醒仍然完成
	cancel()
	close(sender.release)
	f.svc.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.ctxErrs, 1)
	assert.NoError(t, sender.ctxErrs[0])
}
