package api

import (
	"smartbudget/models"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别处理器
type CategoryHandler struct {
	svc *service.FinanceService
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(svc *service.FinanceService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// CategoryRequest 创建类别请求
type CategoryRequest struct {
	Name string                 `json:"name" binding:"required,max=50" example:"Food"`
	Type models.TransactionType `json:"type" binding:"required,oneof=income expense" example:"expense"`
}

// List 获取类别列表
// @Summary 获取类别列表
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param type query string false "类别类型 income/expense"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	typ := models.TransactionType(c.Query("type"))
	if typ != "" && !typ.Valid() {
		BadRequest(c, "类别类型必须为 income 或 expense")
		return
	}
	list, err := h.svc.ListCategories(c.Request.Context(), typ)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, list)
}

// Get 获取单个类别
// @Summary 获取单个类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response{data=models.Category} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cat, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, cat)
}

// Create 创建类别
// @Summary 创建类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "名称已存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), models.Category{Name: req.Name, Type: req.Type})
	if err != nil {
		respondError(c, err, "创建类别失败")
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新类别
// @Summary 更新类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body object true "需要修改的字段"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err, "更新类别失败")
		return
	}
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除类别，已有交易和预算保持不变
// @Summary 删除类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err, "删除类别失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
