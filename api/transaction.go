package api

import (
	"smartbudget/models"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler 交易记录处理器
type TransactionHandler struct {
	svc *service.FinanceService
}

// NewTransactionHandler 创建交易记录处理器
func NewTransactionHandler(svc *service.FinanceService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// CreateTransactionRequest 创建交易请求
type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,oneof=income expense" example:"expense"`
	Amount      decimal.Decimal        `json:"amount" swaggertype:"string" example:"25.50"`
	Category    string                 `json:"category" binding:"required" example:"Food"`
	Date        string                 `json:"date" binding:"required" example:"2024-03-05"`
	Description string                 `json:"description" example:"午餐"`
}

// List 获取交易列表
// @Summary 获取交易列表
// @Description 按日期倒序返回交易，支持按类型、类别、时间范围筛选
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param type query string false "交易类型 income/expense"
// @Param category query string false "类别"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]models.Transaction} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	typ := models.TransactionType(c.Query("type"))
	if typ != "" && !typ.Valid() {
		BadRequest(c, "交易类型必须为 income 或 expense")
		return
	}
	list, err := h.svc.ListTransactions(c.Request.Context(), service.TransactionFilter{
		Type:     typ,
		Category: c.Query("category"),
		Start:    start,
		End:      end,
	})
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}

// Get 获取单条交易
// @Summary 获取单条交易
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 400 {object} Response "无效的ID"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, tx)
}

// Create 创建交易
// @Summary 创建交易
// @Description 类别必须存在且与交易类型一致；支出会触发预算提醒检查
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 502 {object} Response "存储服务失败"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		BadRequest(c, "日期格式错误，应为: 2006-01-02")
		return
	}
	tx, err := h.svc.CreateTransaction(c.Request.Context(), models.Transaction{
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "创建交易失败")
		return
	}
	SuccessWithMessage(c, "创建成功", tx)
}

// Update 更新交易
// @Summary 更新交易
// @Description 只修改请求体中出现的字段，合并后的记录需通过完整校验
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Param request body object true "需要修改的字段"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	patch, ok := bindPatch(c, "date")
	if !ok {
		return
	}
	tx, err := h.svc.UpdateTransaction(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err, "更新交易失败")
		return
	}
	SuccessWithMessage(c, "更新成功", tx)
}

// Delete 删除交易
// @Summary 删除交易
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondError(c, err, "删除交易失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
