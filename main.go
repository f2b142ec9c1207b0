package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"smartbudget/backend"
	"smartbudget/config"
	"smartbudget/events"
	"smartbudget/logger"
	"smartbudget/middleware"
	"smartbudget/models"
	"smartbudget/router"
	"smartbudget/service"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// @title 智能记账 API
// @version 1.0
// @description 个人记账系统 API：交易、类别、月度预算、储蓄目标与报表
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const version = "1.0.0"

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		logrus.Infof("智能记账 v%s", version)
		return
	}

	// .env 不存在时忽略
	if err := godotenv.Load(); err == nil {
		logrus.Debug("已加载 .env")
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		cfg.Server.Port = port
	}
	if !strings.HasPrefix(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}

	log := logger.Setup(cfg.Log)
	config.PrintConfig()

	middleware.InitJWT(cfg)

	res, err := backend.New(cfg, log)
	if err != nil {
		log.Fatalf("存储初始化失败: %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.WithError(err).Warn("关闭存储失败")
		}
	}()

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	alerts := service.NewAlertService(map[models.AlertMethod]service.AlertSender{
		models.AlertEmail: service.NewEmailService(&cfg.Email),
		models.AlertPush:  service.NewPushService(&cfg.Push),
		models.AlertSMS:   service.LogSender{Log: log},
	}, log)
	svc := service.NewFinanceService(res.Stores, alerts, publisher, log)

	r, err := router.SetupRouter(cfg, svc, log)
	if err != nil {
		log.Fatalf("路由初始化失败: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("==========================================")
	log.Info("  智能记账已启动")
	log.Info("==========================================")
	log.Infof("  存储后端: %s", cfg.Store.Backend)
	log.Infof("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Infof("  API接口:  http://localhost%s/api/v1/", cfg.Server.Port)
	log.Info("==========================================")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("服务器关闭失败")
	}
	// 等待后台的预算提醒发送完成
	svc.Wait()
}

// newPublisher 未配置 amqp_url 或连接失败时不发布记录变更事件
func newPublisher(cfg *config.Config, log logrus.FieldLogger) events.Publisher {
	if cfg.Events.AMQPURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
	if err != nil {
		log.WithError(err).Warn("连接消息队列失败，记录变更事件将不会发布")
		return events.NopPublisher{}
	}
	return p
}
