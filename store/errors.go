package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound ID 不对应任何记录
	ErrNotFound = errors.New("record not found")
	// ErrBackend 远程服务或数据库调用失败
	ErrBackend = errors.New("backend failure")
	// ErrPartialBatch 批量写入部分失败
	ErrPartialBatch = errors.New("partial batch failure")
)

// NotFoundError 记录不存在
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BackendError 后端调用失败，Err 为底层错误
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// FieldError 单个字段的失败原因
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RecordFailure 批量写入中单条记录的失败详情
type RecordFailure struct {
	Index   int          `json:"index"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (f RecordFailure) String() string {
	parts := make([]string, 0, len(f.Fields)+1)
	if f.Message != "" {
		parts = append(parts, f.Message)
	}
	for _, fe := range f.Fields {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("record %d: %s", f.Index, strings.Join(parts, "; "))
}

// PartialBatchError 批量写入部分（或全部）失败，已成功的记录不会回滚
type PartialBatchError struct {
	Op        string
	Succeeded int
	Failures  []RecordFailure
}

func (e *PartialBatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.String())
	}
	return fmt.Sprintf("%s: %d succeeded, %d failed (%s)", e.Op, e.Succeeded, len(e.Failures), strings.Join(msgs, ", "))
}

func (e *PartialBatchError) Is(target error) bool {
	return target == ErrPartialBatch
}
