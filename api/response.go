package api

import (
	"errors"
	"net/http"

	"smartbudget/config"
	"smartbudget/models"
	"smartbudget/store"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData 带详情的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// respondError 按错误类型选择状态码：
// 校验失败 400，记录不存在 404，后端或批量写入失败 502，其余 500
func respondError(c *gin.Context, err error, fallback string) {
	var (
		verr  *models.ValidationError
		batch *store.PartialBatchError
	)
	switch {
	case errors.As(err, &verr):
		ErrorWithData(c, http.StatusBadRequest, verr.Message, gin.H{"field": verr.Field})
	case errors.Is(err, models.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.As(err, &batch):
		ErrorWithData(c, http.StatusBadGateway, SafeErrorMessage(err, fallback), gin.H{"failures": batch.Failures})
	case errors.Is(err, store.ErrBackend):
		Error(c, http.StatusBadGateway, SafeErrorMessage(err, fallback))
	default:
		InternalError(c, SafeErrorMessage(err, fallback))
	}
}
