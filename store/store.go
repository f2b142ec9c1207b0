// Package store 定义按实体参数化的记录存储契约及其内存、数据库、远程三种实现。
package store

import "context"

// Store 单个实体集合的增删改查
type Store[T any] interface {
	// GetAll 返回全部记录的副本，保持原有顺序
	GetAll(ctx context.Context) ([]T, error)
	// GetByID 按 ID 查询，不存在时返回 ErrNotFound
	GetByID(ctx context.Context, id int) (T, error)
	// Create 分配新 ID（当前最大 ID + 1，空集合时为 1）并保存
	Create(ctx context.Context, rec T) (T, error)
	// Update 只覆盖 patch 中出现的字段，返回合并后的记录
	Update(ctx context.Context, id int, patch Patch) (T, error)
	// Delete 删除记录，不存在时返回 ErrNotFound
	Delete(ctx context.Context, id int) error
}

// Patch 部分更新，键为对外字段名（与 JSON 字段名一致）
type Patch map[string]any
