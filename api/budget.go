package api

import (
	"smartbudget/models"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BudgetHandler 预算处理器
type BudgetHandler struct {
	svc *service.FinanceService
}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler(svc *service.FinanceService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

// CreateBudgetRequest 创建预算请求，month 缺省为当前月，阈值缺省 80
type CreateBudgetRequest struct {
	Category       string               `json:"category" binding:"required" example:"Food"`
	MonthlyLimit   decimal.Decimal      `json:"monthlyLimit" swaggertype:"string" example:"500"`
	Month          string               `json:"month" example:"2024-03"`
	AlertThreshold int                  `json:"alertThreshold" example:"80"`
	AlertMethods   []models.AlertMethod `json:"alertMethods" swaggertype:"array,string" example:"email,push"`
}

// AlertSettingsRequest 提醒设置
type AlertSettingsRequest struct {
	AlertThreshold int                  `json:"alertThreshold" binding:"required" example:"80"`
	AlertMethods   []models.AlertMethod `json:"alertMethods" swaggertype:"array,string" example:"email"`
}

// List 获取预算列表
// @Summary 获取预算列表
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-03)，默认当前月"
// @Success 200 {object} Response{data=[]models.Budget} "获取成功"
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	list, err := h.svc.ListBudgets(c.Request.Context(), c.Query("month"))
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}

// Get 获取单个预算
// @Summary 获取单个预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response{data=models.Budget} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/budgets/{id} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b, err := h.svc.GetBudget(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, b)
}

// Create 创建预算
// @Summary 创建预算
// @Description 同一支出类别每月只能设置一个预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBudgetRequest true "预算信息"
// @Success 200 {object} Response{data=models.Budget} "创建成功"
// @Failure 400 {object} Response "该类别本月已设置预算"
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	b, err := h.svc.CreateBudget(c.Request.Context(), models.Budget{
		Category:       req.Category,
		MonthlyLimit:   req.MonthlyLimit,
		Month:          req.Month,
		AlertThreshold: req.AlertThreshold,
		AlertMethods:   req.AlertMethods,
	})
	if err != nil {
		respondError(c, err, "创建预算失败")
		return
	}
	SuccessWithMessage(c, "创建成功", b)
}

// Update 更新预算
// @Summary 更新预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Param request body object true "需要修改的字段"
// @Success 200 {object} Response{data=models.Budget} "更新成功"
// @Router /api/v1/budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	b, err := h.svc.UpdateBudget(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err, "更新预算失败")
		return
	}
	SuccessWithMessage(c, "更新成功", b)
}

// UpdateAlerts 修改提醒设置
// @Summary 修改预算提醒设置
// @Description 阈值范围 50-95，提醒方式 email/push/sms
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Param request body AlertSettingsRequest true "提醒设置"
// @Success 200 {object} Response{data=models.Budget} "更新成功"
// @Router /api/v1/budgets/{id}/alerts [put]
func (h *BudgetHandler) UpdateAlerts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AlertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	b, err := h.svc.UpdateBudgetAlerts(c.Request.Context(), id, req.AlertThreshold, req.AlertMethods)
	if err != nil {
		respondError(c, err, "更新提醒设置失败")
		return
	}
	SuccessWithMessage(c, "更新成功", b)
}

// Delete 删除预算
// @Summary 删除预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteBudget(c.Request.Context(), id); err != nil {
		respondError(c, err, "删除预算失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Status 预算执行情况
// @Summary 预算执行情况
// @Description 已支出按当月交易实时计算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-03)，默认当前月"
// @Success 200 {object} Response{data=[]report.BudgetStatus} "获取成功"
// @Router /api/v1/budgets/status [get]
func (h *BudgetHandler) Status(c *gin.Context) {
	list, err := h.svc.BudgetStatuses(c.Request.Context(), c.Query("month"))
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}

// AvailableCategories 尚未设置预算的支出类别
// @Summary 可设置预算的类别
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-03)，默认当前月"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/budgets/available-categories [get]
func (h *BudgetHandler) AvailableCategories(c *gin.Context) {
	list, err := h.svc.AvailableCategories(c.Request.Context(), c.Query("month"))
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}
