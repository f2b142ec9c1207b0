// Package fixtures 提供内存后端的初始数据，默认使用内置 JSON，可通过目录覆盖。
package fixtures

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"smartbudget/models"
)

//go:embed data/*.json
var embedded embed.FS

// 各实体对应的文件名
const (
	TransactionsFile = "transactions.json"
	BudgetsFile      = "budgets.json"
	CategoriesFile   = "categories.json"
	GoalsFile        = "goals.json"
)

// Data 全部实体的初始数据
type Data struct {
	Transactions []models.Transaction
	Budgets      []models.Budget
	Categories   []models.Category
	Goals        []models.SavingsGoal
}

// Load 读取初始数据。dir 为空时使用内置数据；dir 中缺少的文件回退到内置数据
func Load(dir string) (*Data, error) {
	base, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	var override fs.FS
	if dir != "" {
		override = os.DirFS(dir)
	}
	return load(base, override)
}

func load(base, override fs.FS) (*Data, error) {
	d := &Data{}
	if err := decode(base, override, TransactionsFile, &d.Transactions); err != nil {
		return nil, err
	}
	if err := decode(base, override, BudgetsFile, &d.Budgets); err != nil {
		return nil, err
	}
	if err := decode(base, override, CategoriesFile, &d.Categories); err != nil {
		return nil, err
	}
	if err := decode(base, override, GoalsFile, &d.Goals); err != nil {
		return nil, err
	}
	return d, nil
}

func decode(base, override fs.FS, name string, out any) error {
	raw, err := readFile(base, override, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", name, err)
	}
	return nil
}

func readFile(base, override fs.FS, name string) ([]byte, error) {
	if override != nil {
		raw, err := fs.ReadFile(override, name)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取 %s 失败: %w", name, err)
		}
	}
	raw, err := fs.ReadFile(base, name)
	if err != nil {
		return nil, fmt.Errorf("读取内置 %s 失败: %w", name, err)
	}
	return raw, nil
}
