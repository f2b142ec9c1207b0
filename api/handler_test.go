package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartbudget/backend"
	"smartbudget/models"
	"smartbudget/service"
	"smartbudget/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.Local) }

func newTestStores() *backend.Stores {
	n := decimal.NewFromInt
	return &backend.Stores{
		Transactions: store.NewMemoryStore(store.Transactions, []models.Transaction{
			{ID: 1, Type: models.TransactionExpense, Category: "Food", Amount: n(50), Date: day(3, 5), Description: "午餐"},
			{ID: 2, Type: models.TransactionExpense, Category: "Food", Amount: n(30), Date: day(3, 10)},
			{ID: 3, Type: models.TransactionIncome, Category: "Salary", Amount: n(1000), Date: day(3, 1)},
		}),
		Budgets: store.NewMemoryStore(store.Budgets, []models.Budget{
			{ID: 1, Category: "Food", MonthlyLimit: n(60), Month: "2024-03", AlertThreshold: 80},
		}),
		Categories: store.NewMemoryStore(store.Categories, []models.Category{
			{ID: 1, Name: "Salary", Type: models.TransactionIncome},
			{ID: 2, Name: "Food", Type: models.TransactionExpense},
			{ID: 3, Name: "Transport", Type: models.TransactionExpense},
		}),
		Goals: store.NewMemoryStore(store.Goals, []models.SavingsGoal{
			{ID: 1, Name: "Bike", TargetAmount: n(500), CurrentAmount: n(450), Deadline: day(12, 31)},
		}),
	}
}

func newTestRouter(stores *backend.Stores) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewFinanceService(stores, nil, nil, nil)
	r := gin.New()

	th := NewTransactionHandler(svc)
	r.GET("/transactions", th.List)
	r.POST("/transactions", th.Create)
	r.GET("/transactions/:id", th.Get)
	r.PUT("/transactions/:id", th.Update)
	r.DELETE("/transactions/:id", th.Delete)

	ch := NewCategoryHandler(svc)
	r.GET("/categories", ch.List)
	r.POST("/categories", ch.Create)
	r.DELETE("/categories/:id", ch.Delete)

	bh := NewBudgetHandler(svc)
	r.GET("/budgets", bh.List)
	r.POST("/budgets", bh.Create)
	r.GET("/budgets/status", bh.Status)
	r.GET("/budgets/available-categories", bh.AvailableCategories)
	r.PUT("/budgets/:id/alerts", bh.UpdateAlerts)

	gh := NewGoalHandler(svc)
	r.POST("/goals", gh.Create)
	r.PUT("/goals/:id", gh.Update)
	r.POST("/goals/:id/contribute", gh.Contribute)
	r.GET("/goals/status", gh.Status)

	rh := NewReportHandler(svc)
	r.GET("/reports/summary", rh.Summary)
	r.GET("/reports/categories", rh.Categories)
	r.GET("/reports/trend", rh.Trend)
	r.GET("/reports/category-trend", rh.CategoryTrend)

	eh := NewExportHandler(svc)
	r.GET("/export/csv", eh.ExportCSV)
	r.GET("/export/excel", eh.ExportExcel)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestTransactionHandler_Create(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "POST", "/transactions",
		`{"type":"expense","amount":"12.50","category":"Transport","date":"2024-03-15","description":"地铁"}`)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "创建成功", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["id"])
	assert.Equal(t, "12.5", data["amount"])
}

func TestTransactionHandler_CreateInvalid(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "POST", "/transactions",
		`{"type":"income","amount":"10","category":"Food","date":"2024-03-15"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "category", resp["data"].(map[string]interface{})["field"])

	w, _ = doJSON(t, r, "POST", "/transactions", `{"type":"expense","amount":"0","category":"Food","date":"2024-03-15"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(t, r, "POST", "/transactions", `{"type":"expense","amount":"5","category":"Food","date":"15/03/2024"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(t, r, "POST", "/transactions", `{"type":"gift","amount":"5","category":"Food","date":"2024-03-15"}`)
	assert.Equal(t, 400, w.Code)
}

func TestTransactionHandler_GetAndIDs(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "GET", "/transactions/1", "")
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "午餐", resp["data"].(map[string]interface{})["description"])

	w, _ = doJSON(t, r, "GET", "/transactions/abc", "")
	assert.Equal(t, 400, w.Code)

	w, resp = doJSON(t, r, "GET", "/transactions/99", "")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, float64(404), resp["code"])
}

func TestTransactionHandler_List(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "GET", "/transactions?type=expense&start_date=2024-03-06&end_date=2024-03-10", "")
	assert.Equal(t, 200, w.Code)
	list := resp["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, float64(2), list[0].(map[string]interface{})["id"])

	w, _ = doJSON(t, r, "GET", "/transactions?start_date=2024-03-10&end_date=2024-03-01", "")
	assert.Equal(t, 400, w.Code)
}

func TestTransactionHandler_UpdateAndDelete(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "PUT", "/transactions/1", `{"date":"2024-03-07","description":"晚餐"}`)
	assert.Equal(t, 200, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "晚餐", data["description"])
	assert.Equal(t, "50", data["amount"])

	w, _ = doJSON(t, r, "PUT", "/transactions/1", `{"color":"red"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(t, r, "DELETE", "/transactions/1", "")
	assert.Equal(t, 200, w.Code)
	w, _ = doJSON(t, r, "DELETE", "/transactions/1", "")
	assert.Equal(t, 404, w.Code)
}

func TestCategoryHandler(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "GET", "/categories?type=expense", "")
	assert.Equal(t, 200, w.Code)
	assert.Len(t, resp["data"].([]interface{}), 2)

	w, _ = doJSON(t, r, "POST", "/categories", `{"name":"food","type":"expense"}`)
	assert.Equal(t, 400, w.Code)

	w, resp = doJSON(t, r, "POST", "/categories", `{"name":"Rent","type":"expense"}`)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, float64(4), resp["data"].(map[string]interface{})["id"])
}

func TestBudgetHandler(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "POST", "/budgets", `{"category":"Food","monthlyLimit":"100","month":"2024-03"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "该类别本月已设置预算", resp["message"])

	w, resp = doJSON(t, r, "POST", "/budgets", `{"category":"Transport","monthlyLimit":"100","month":"2024-03"}`)
	assert.Equal(t, 200, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(80), data["alertThreshold"])
	assert.Equal(t, []interface{}{"email", "push"}, data["alertMethods"])

	w, resp = doJSON(t, r, "GET", "/budgets?month=2024-03", "")
	assert.Equal(t, 200, w.Code)
	assert.Len(t, resp["data"].([]interface{}), 2)

	w, resp = doJSON(t, r, "GET", "/budgets/available-categories?month=2024-03", "")
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, resp["data"])

	w, resp = doJSON(t, r, "GET", "/budgets/status?month=2024-03", "")
	assert.Equal(t, 200, w.Code)
	statuses := resp["data"].([]interface{})
	require.Len(t, statuses, 2)
	food := statuses[0].(map[string]interface{})
	assert.Equal(t, true, food["overBudget"])
	assert.Equal(t, "-20", food["remaining"])
	assert.Equal(t, float64(100), food["progress"])

	w, _ = doJSON(t, r, "PUT", "/budgets/1/alerts", `{"alertThreshold":99,"alertMethods":["email"]}`)
	assert.Equal(t, 400, w.Code)
	w, resp = doJSON(t, r, "PUT", "/budgets/1/alerts", `{"alertThreshold":60,"alertMethods":["sms"]}`)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, []interface{}{"sms"}, resp["data"].(map[string]interface{})["alertMethods"])
}

func TestGoalHandler(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "POST", "/goals/1/contribute", `{"amount":"100"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "存入后将超过目标金额", resp["message"])

	w, resp = doJSON(t, r, "POST", "/goals/1/contribute", `{"amount":"50"}`)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "500", resp["data"].(map[string]interface{})["currentAmount"])

	w, resp = doJSON(t, r, "GET", "/goals/status", "")
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, true, resp["data"].([]interface{})[0].(map[string]interface{})["completed"])

	w, _ = doJSON(t, r, "POST", "/goals", `{"name":"Car","targetAmount":"100","currentAmount":"200","deadline":"2024-12-31"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(t, r, "PUT", "/goals/1", `{"deadline":"2025-06-30"}`)
	assert.Equal(t, 200, w.Code)
}

func TestReportHandler(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, resp := doJSON(t, r, "GET", "/reports/summary?start_date=2024-03-01&end_date=2024-03-31", "")
	assert.Equal(t, 200, w.Code)
	sum := resp["data"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, "1000", sum["income"])
	assert.Equal(t, "80", sum["expense"])
	assert.Equal(t, "920", sum["net"])

	w, resp = doJSON(t, r, "GET", "/reports/categories?start_date=2024-03-01&end_date=2024-03-31", "")
	assert.Equal(t, 200, w.Code)
	cats := resp["data"].([]interface{})
	require.Len(t, cats, 1)
	food := cats[0].(map[string]interface{})
	assert.Equal(t, "Food", food["category"])
	assert.Equal(t, float64(100), food["percentage"])
	assert.Equal(t, "40", food["average"])

	w, resp = doJSON(t, r, "GET", "/reports/trend?months=3", "")
	assert.Equal(t, 200, w.Code)
	assert.Len(t, resp["data"].([]interface{}), 3)

	w, _ = doJSON(t, r, "GET", "/reports/category-trend", "")
	assert.Equal(t, 400, w.Code)
	w, _ = doJSON(t, r, "GET", "/reports/categories?type=gift", "")
	assert.Equal(t, 400, w.Code)
}

func TestExportCSV(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, _ := doJSON(t, r, "GET", "/export/csv", "")
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(t, r, "GET", "/export/csv?start_date=2024-03-01&end_date=2024-03-31", "")
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,类型,金额,类别,描述,日期", lines[0])
	assert.Equal(t, "2,支出,30.00,Food,,2024-03-10", lines[1])
}

func TestExportExcel(t *testing.T) {
	r := newTestRouter(newTestStores())

	w, _ := doJSON(t, r, "GET", "/export/excel?start_date=2024-03-01&end_date=2024-03-31", "")
	require.Equal(t, 200, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("交易记录")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "类型", rows[0][1])
	assert.Equal(t, "Salary", rows[3][3])
	assert.Equal(t, "合计", rows[4][0])
	assert.Contains(t, rows[4][3], "共 3 条记录")
}
