package api

import (
	"errors"
	"time"

	"smartbudget/config"
	"smartbudget/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// accountID 单账号模式下固定的用户ID
const accountID uint = 1

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg     *config.Config
	hash    []byte
	limiter *middleware.RateLimiter
}

// NewAuthHandler 创建认证处理器。未配置 password_hash 时使用明文 password 生成哈希；
// limiter 可为 nil，非空时登录成功会清除该客户端的失败计数
func NewAuthHandler(cfg *config.Config, limiter *middleware.RateLimiter) (*AuthHandler, error) {
	h := &AuthHandler{cfg: cfg, limiter: limiter}
	switch {
	case cfg.Auth.PasswordHash != "":
		h.hash = []byte(cfg.Auth.PasswordHash)
	case cfg.Auth.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h.hash = hash
	default:
		return nil, errors.New("未配置登录密码 auth.password 或 auth.password_hash")
	}
	return h, nil
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login 登录
// @Summary 登录
// @Description 使用配置的账号密码登录获取 JWT token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 429 {object} Response "登录尝试过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if req.Username != h.cfg.Auth.Username {
		Unauthorized(c, "用户名或密码错误")
		return
	}
	if err := bcrypt.CompareHashAndPassword(h.hash, []byte(req.Password)); err != nil {
		Unauthorized(c, "用户名或密码错误")
		return
	}

	ttl := h.cfg.JWT.ExpireTime
	token, err := middleware.GenerateToken(accountID, req.Username, ttl)
	if err != nil {
		InternalError(c, "生成token失败")
		return
	}
	if h.limiter != nil {
		h.limiter.Reset(c.ClientIP())
	}

	SuccessWithMessage(c, "登录成功", LoginResponse{
		Token:     token,
		Username:  req.Username,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Profile 当前登录账号
// @Summary 当前登录账号
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	Success(c, gin.H{
		"userId":   middleware.GetCurrentUserID(c),
		"username": middleware.GetCurrentUsername(c),
	})
}
