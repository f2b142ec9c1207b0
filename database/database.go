package database

import (
	"fmt"
	"time"

	"smartbudget/config"
	"smartbudget/fixtures"
	"smartbudget/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 按配置连接数据库（mysql / sqlite）
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.DBName,
			cfg.Database.Charset,
		)
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger(cfg.Server.Mode)})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	return db, nil
}

// newLogger gorm 日志输出到 logrus，debug 模式打印 SQL
func newLogger(mode string) logger.Interface {
	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}
	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate 自动迁移数据库表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Transaction{},
		&models.Budget{},
		&models.Category{},
		&models.SavingsGoal{},
	)
}

// Seed 用初始数据填充空表，已有数据的表不做处理
func Seed(db *gorm.DB, data *fixtures.Data) error {
	if err := seedTable(db, data.Categories); err != nil {
		return err
	}
	if err := seedTable(db, data.Transactions); err != nil {
		return err
	}
	if err := seedTable(db, data.Budgets); err != nil {
		return err
	}
	return seedTable(db, data.Goals)
}

func seedTable[T any](db *gorm.DB, rows []T) error {
	var count int64
	if err := db.Model(new(T)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(rows) == 0 {
		return nil
	}
	if err := db.CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("初始化数据失败: %w", err)
	}
	logrus.WithFields(logrus.Fields{"rows": len(rows), "model": fmt.Sprintf("%T", *new(T))}).Info("已写入初始数据")
	return nil
}

// Init 连接、迁移并初始化数据
func Init(cfg *config.Config, data *fixtures.Data) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	if data != nil {
		if err := Seed(db, data); err != nil {
			return nil, err
		}
	}
	logrus.Info("数据库初始化成功")
	return db, nil
}
