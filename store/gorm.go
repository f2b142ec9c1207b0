package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore 基于 gorm 的数据库实现（MySQL / SQLite）
type GormStore[T any] struct {
	db     *gorm.DB
	entity Entity[T]
}

// NewGormStore 创建数据库存储
func NewGormStore[T any](db *gorm.DB, entity Entity[T]) *GormStore[T] {
	return &GormStore[T]{db: db, entity: entity}
}

func (s *GormStore[T]) GetAll(ctx context.Context) ([]T, error) {
	var list []T
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, &BackendError{Op: "query " + s.entity.Table, Err: err}
	}
	return list, nil
}

func (s *GormStore[T]) GetByID(ctx context.Context, id int) (T, error) {
	var rec T
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	if err != nil {
		return rec, &BackendError{Op: "query " + s.entity.Table, Err: err}
	}
	return rec, nil
}

// Create 在事务内取当前最大 ID 并插入，保证 ID = max + 1
func (s *GormStore[T]) Create(ctx context.Context, rec T) (T, error) {
	s.entity.applyDefaults(&rec)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID int
		if err := tx.Model(new(T)).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		s.entity.SetID(&rec, maxID+1)
		return tx.Create(&rec).Error
	})
	if err != nil {
		var zero T
		return zero, &BackendError{Op: "insert " + s.entity.Table, Err: err}
	}
	return rec, nil
}

func (s *GormStore[T]) Update(ctx context.Context, id int, patch Patch) (T, error) {
	var zero T
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	merged, changed, err := s.entity.Merge(current, patch)
	if err != nil {
		return zero, err
	}
	if len(changed) == 0 {
		return merged, nil
	}
	err = s.db.WithContext(ctx).Model(&merged).Select(Columns(changed)).Updates(&merged).Error
	if err != nil {
		return zero, &BackendError{Op: "update " + s.entity.Table, Err: err}
	}
	return merged, nil
}

func (s *GormStore[T]) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return &BackendError{Op: "delete " + s.entity.Table, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	return nil
}
