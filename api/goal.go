package api

import (
	"smartbudget/models"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GoalHandler 储蓄目标处理器
type GoalHandler struct {
	svc *service.FinanceService
}

// NewGoalHandler 创建储蓄目标处理器
func NewGoalHandler(svc *service.FinanceService) *GoalHandler {
	return &GoalHandler{svc: svc}
}

// CreateGoalRequest 创建储蓄目标请求
type CreateGoalRequest struct {
	Name          string          `json:"name" binding:"required,max=100" example:"旅行基金"`
	TargetAmount  decimal.Decimal `json:"targetAmount" swaggertype:"string" example:"5000"`
	CurrentAmount decimal.Decimal `json:"currentAmount" swaggertype:"string" example:"0"`
	Deadline      string          `json:"deadline" binding:"required" example:"2024-12-31"`
}

// ContributeRequest 存入请求
type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"100"`
}

// List 获取储蓄目标列表
// @Summary 获取储蓄目标列表
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.SavingsGoal} "获取成功"
// @Router /api/v1/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	list, err := h.svc.ListGoals(c.Request.Context())
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}

// Get 获取单个储蓄目标
// @Summary 获取单个储蓄目标
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response{data=models.SavingsGoal} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	g, err := h.svc.GetGoal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, g)
}

// Create 创建储蓄目标
// @Summary 创建储蓄目标
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateGoalRequest true "目标信息"
// @Success 200 {object} Response{data=models.SavingsGoal} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	deadline, err := parseDate(req.Deadline)
	if err != nil {
		BadRequest(c, "截止日期格式错误，应为: 2006-01-02")
		return
	}
	g, err := h.svc.CreateGoal(c.Request.Context(), models.SavingsGoal{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      deadline,
	})
	if err != nil {
		respondError(c, err, "创建储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "创建成功", g)
}

// Update 更新储蓄目标
// @Summary 更新储蓄目标
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body object true "需要修改的字段"
// @Success 200 {object} Response{data=models.SavingsGoal} "更新成功"
// @Router /api/v1/goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	patch, ok := bindPatch(c, "deadline")
	if !ok {
		return
	}
	g, err := h.svc.UpdateGoal(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err, "更新储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "更新成功", g)
}

// Delete 删除储蓄目标
// @Summary 删除储蓄目标
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteGoal(c.Request.Context(), id); err != nil {
		respondError(c, err, "删除储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Contribute 向目标存入金额
// @Summary 存入金额
// @Description 存入后超过目标金额时拒绝
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body ContributeRequest true "存入金额"
// @Success 200 {object} Response{data=models.SavingsGoal} "存入成功"
// @Failure 400 {object} Response "存入后将超过目标金额"
// @Router /api/v1/goals/{id}/contribute [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	g, err := h.svc.Contribute(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err, "存入失败")
		return
	}
	SuccessWithMessage(c, "存入成功", g)
}

// Status 储蓄目标进度
// @Summary 储蓄目标进度
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]report.GoalStatus} "获取成功"
// @Router /api/v1/goals/status [get]
func (h *GoalHandler) Status(c *gin.Context) {
	list, err := h.svc.GoalStatuses(c.Request.Context())
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}
