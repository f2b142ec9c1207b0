package router

import (
	"net/http"
	"time"

	"smartbudget/api"
	"smartbudget/config"
	_ "smartbudget/docs"
	"smartbudget/middleware"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc *service.FinanceService, log logrus.FieldLogger) (*gin.Engine, error) {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	// CORS 中间件
	r.Use(CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"backend": cfg.Store.Backend,
		})
	})

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := middleware.NewRateLimiter(cfg.Auth.MaxLoginAttempts, time.Duration(cfg.Auth.LoginWindowMinutes)*time.Minute)
	authHandler, err := api.NewAuthHandler(cfg, limiter)
	if err != nil {
		return nil, err
	}
	transactionHandler := api.NewTransactionHandler(svc)
	categoryHandler := api.NewCategoryHandler(svc)
	budgetHandler := api.NewBudgetHandler(svc)
	goalHandler := api.NewGoalHandler(svc)
	reportHandler := api.NewReportHandler(svc)
	exportHandler := api.NewExportHandler(svc)

	v1 := r.Group("/api/v1")
	{
		// 公开接口
		auth := v1.Group("/auth")
		{
			auth.POST("/login", limiter.Middleware(), authHandler.Login)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.GET("/auth/profile", authHandler.Profile)

			// 交易
			transactions := authorized.Group("/transactions")
			{
				transactions.GET("", transactionHandler.List)
				transactions.POST("", transactionHandler.Create)
				transactions.GET("/:id", transactionHandler.Get)
				transactions.PUT("/:id", transactionHandler.Update)
				transactions.DELETE("/:id", transactionHandler.Delete)
			}

			// 类别
			categories := authorized.Group("/categories")
			{
				categories.GET("", categoryHandler.List)
				categories.POST("", categoryHandler.Create)
				categories.GET("/:id", categoryHandler.Get)
				categories.PUT("/:id", categoryHandler.Update)
				categories.DELETE("/:id", categoryHandler.Delete)
			}

			// 预算
			budgets := authorized.Group("/budgets")
			{
				budgets.GET("", budgetHandler.List)
				budgets.POST("", budgetHandler.Create)
				budgets.GET("/status", budgetHandler.Status)
				budgets.GET("/available-categories", budgetHandler.AvailableCategories)
				budgets.GET("/:id", budgetHandler.Get)
				budgets.PUT("/:id", budgetHandler.Update)
				budgets.PUT("/:id/alerts", budgetHandler.UpdateAlerts)
				budgets.DELETE("/:id", budgetHandler.Delete)
			}

			// 储蓄目标
			goals := authorized.Group("/goals")
			{
				goals.GET("", goalHandler.List)
				goals.POST("", goalHandler.Create)
				goals.GET("/status", goalHandler.Status)
				goals.GET("/:id", goalHandler.Get)
				goals.PUT("/:id", goalHandler.Update)
				goals.DELETE("/:id", goalHandler.Delete)
				goals.POST("/:id/contribute", goalHandler.Contribute)
			}

			// 报表
			reports := authorized.Group("/reports")
			{
				reports.GET("/summary", reportHandler.Summary)
				reports.GET("/categories", reportHandler.Categories)
				reports.GET("/trend", reportHandler.Trend)
				reports.GET("/category-trend", reportHandler.CategoryTrend)
				reports.GET("/dashboard", reportHandler.Dashboard)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/excel", exportHandler.ExportExcel)
			}
		}
	}

	return r, nil
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
