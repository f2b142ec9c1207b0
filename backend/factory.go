// Package backend 按配置组装四个实体的存储。
package backend

import (
	"fmt"

	"smartbudget/config"
	"smartbudget/database"
	"smartbudget/fixtures"
	"smartbudget/models"
	"smartbudget/recordsvc"
	"smartbudget/store"

	"github.com/sirupsen/logrus"
)

// Stores 四个实体的存储
type Stores struct {
	Transactions store.Store[models.Transaction]
	Budgets      store.Store[models.Budget]
	Categories   store.Store[models.Category]
	Goals        store.Store[models.SavingsGoal]
}

// Result 存储及其清理函数
type Result struct {
	Stores  *Stores
	Cleanup func() error
}

// New 根据 store.backend 创建存储
func New(cfg *config.Config, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return newMemory(cfg, log)
	case config.BackendDatabase:
		return newDatabase(cfg, log)
	case config.BackendRemote:
		return newRemote(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Store.Backend)
	}
}

func newMemory(cfg *config.Config, log logrus.FieldLogger) (*Result, error) {
	data, err := fixtures.Load(cfg.Store.FixtureDir)
	if err != nil {
		return nil, fmt.Errorf("加载初始数据失败: %w", err)
	}
	log.WithFields(logrus.Fields{
		"fixture_dir":  cfg.Store.FixtureDir,
		"transactions": len(data.Transactions),
		"budgets":      len(data.Budgets),
	}).Info("已初始化内存存储")

	return &Result{
		Stores: &Stores{
			Transactions: store.NewMemoryStore(store.Transactions, data.Transactions),
			Budgets:      store.NewMemoryStore(store.Budgets, data.Budgets),
			Categories:   store.NewMemoryStore(store.Categories, data.Categories),
			Goals:        store.NewMemoryStore(store.Goals, data.Goals),
		},
		Cleanup: func() error { return nil },
	}, nil
}

func newDatabase(cfg *config.Config, log logrus.FieldLogger) (*Result, error) {
	data, err := fixtures.Load(cfg.Store.FixtureDir)
	if err != nil {
		return nil, fmt.Errorf("加载初始数据失败: %w", err)
	}
	db, err := database.Init(cfg, data)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	log.WithField("driver", cfg.Database.Driver).Info("已初始化数据库存储")

	return &Result{
		Stores: &Stores{
			Transactions: store.NewGormStore(db, store.Transactions),
			Budgets:      store.NewGormStore(db, store.Budgets),
			Categories:   store.NewGormStore(db, store.Categories),
			Goals:        store.NewGormStore(db, store.Goals),
		},
		Cleanup: sqlDB.Close,
	}, nil
}

func newRemote(cfg *config.Config, log logrus.FieldLogger) (*Result, error) {
	client := recordsvc.NewClient(recordsvc.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout(),
	})
	t := cfg.Remote.Tables
	size := cfg.Remote.PageSize
	log.WithField("base_url", cfg.Remote.BaseURL).Info("已初始化远程存储")

	return &Result{
		Stores: &Stores{
			Transactions: store.NewRemoteStore(client, withTable(store.Transactions, t.Transactions), size, log),
			Budgets:      store.NewRemoteStore(client, withTable(store.Budgets, t.Budgets), size, log),
			Categories:   store.NewRemoteStore(client, withTable(store.Categories, t.Categories), size, log),
			Goals:        store.NewRemoteStore(client, withTable(store.Goals, t.Goals), size, log),
		},
		Cleanup: func() error { return nil },
	}, nil
}

// withTable 使用配置中的远程表名，未配置时保持默认
func withTable[T any](e store.Entity[T], table string) store.Entity[T] {
	if table != "" {
		e.Table = table
	}
	return e
}
