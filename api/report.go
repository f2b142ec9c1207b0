package api

import (
	"time"

	"smartbudget/models"
	"smartbudget/report"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 报表处理器
type ReportHandler struct {
	svc *service.FinanceService
}

// NewReportHandler 创建报表处理器
func NewReportHandler(svc *service.FinanceService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// SummaryResponse 区间汇总
type SummaryResponse struct {
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Summary   report.Summary `json:"summary"`
}

// reportRange 优先使用 start_date/end_date，否则按 period 计算到本月底
func (h *ReportHandler) reportRange(c *gin.Context) (start, end time.Time, ok bool) {
	start, end, ok = parseDateRange(c)
	if !ok {
		return start, end, false
	}
	now := h.svc.Now()
	if start.IsZero() {
		start = report.PeriodStart(c.DefaultQuery("period", "6months"), now)
	}
	if end.IsZero() {
		_, end = report.MonthRange(now)
	}
	return start, end, true
}

// Summary 收支汇总
// @Summary 收支汇总
// @Description 不传日期时按 period（1month/3months/6months）统计
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Param period query string false "统计周期" default(6months)
// @Success 200 {object} Response{data=SummaryResponse} "获取成功"
// @Router /api/v1/reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, SummaryResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Summary:   sum,
	})
}

// Categories 分类占比
// @Summary 分类占比
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Param period query string false "统计周期" default(6months)
// @Param type query string false "交易类型" default(expense)
// @Success 200 {object} Response{data=[]report.CategoryTotal} "获取成功"
// @Router /api/v1/reports/categories [get]
func (h *ReportHandler) Categories(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	typ := models.TransactionType(c.DefaultQuery("type", string(models.TransactionExpense)))
	if !typ.Valid() {
		BadRequest(c, "交易类型必须为 income 或 expense")
		return
	}
	list, err := h.svc.CategoryBreakdown(c.Request.Context(), start, end, typ)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, list)
}

// Trend 月度收支趋势
// @Summary 月度收支趋势
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param months query int false "月份数" default(6)
// @Success 200 {object} Response{data=[]report.MonthTrend} "获取成功"
// @Router /api/v1/reports/trend [get]
func (h *ReportHandler) Trend(c *gin.Context) {
	months := queryInt(c, "months", report.DefaultMonthCount)
	if months > 24 {
		months = 24
	}
	list, err := h.svc.Trend(c.Request.Context(), months)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, list)
}

// CategoryTrend 单个类别的月度支出
// @Summary 类别支出趋势
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param category query string true "类别"
// @Param months query int false "月份数" default(6)
// @Success 200 {object} Response{data=[]report.CategoryMonth} "获取成功"
// @Failure 400 {object} Response "缺少类别"
// @Router /api/v1/reports/category-trend [get]
func (h *ReportHandler) CategoryTrend(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		BadRequest(c, "请提供类别")
		return
	}
	months := queryInt(c, "months", report.DefaultMonthCount)
	if months > 24 {
		months = 24
	}
	list, err := h.svc.CategoryTrend(c.Request.Context(), category, months)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, list)
}

// Dashboard 首页概览
// @Summary 首页概览
// @Description 当月收支、预算剩余、最近交易、预算与储蓄目标进度
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.DashboardView} "获取成功"
// @Router /api/v1/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	view, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, view)
}
