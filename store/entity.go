package store

import (
	"encoding/json"
	"fmt"

	"smartbudget/models"
)

// Field 字段映射：对外字段名 / 数据库列名 / 记录服务字段名
type Field struct {
	Name   string
	Column string
	Remote string
	// ToRemote / FromRemote 可选的值转换（如数组与逗号分隔字符串互转）
	ToRemote   func(v any) any
	FromRemote func(v any) any
}

// Entity 实体配置，同一套存储实现通过它适配不同实体
type Entity[T any] struct {
	Name     string
	Table    string
	Fields   []Field
	ID       func(*T) int
	SetID    func(*T, int)
	Defaults func(*T)
	// Clone 深拷贝，含切片字段的实体需要提供
	Clone func(T) T
}

func (e Entity[T]) field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (e Entity[T]) clone(rec T) T {
	if e.Clone == nil {
		return rec
	}
	return e.Clone(rec)
}

func (e Entity[T]) applyDefaults(rec *T) {
	if e.Defaults != nil {
		e.Defaults(rec)
	}
}

// Merge 将 patch 合并到 rec 上，返回新记录及被修改的字段。
// id 不可修改，patch 中的 id 会被忽略；未知字段返回校验错误。
func (e Entity[T]) Merge(rec T, patch Patch) (T, []Field, error) {
	var zero T
	raw, err := json.Marshal(rec)
	if err != nil {
		return zero, nil, fmt.Errorf("marshal %s: %w", e.Name, err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, nil, fmt.Errorf("decode %s: %w", e.Name, err)
	}

	changed := make([]Field, 0, len(patch))
	for _, f := range e.Fields {
		v, ok := patch[f.Name]
		if !ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return zero, nil, models.NewValidationError(f.Name, "无法解析的字段值")
		}
		doc[f.Name] = b
		changed = append(changed, f)
	}
	for k := range patch {
		if k == "id" {
			continue
		}
		if _, ok := e.field(k); !ok {
			return zero, nil, models.NewValidationError(k, "未知字段")
		}
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return zero, nil, fmt.Errorf("encode %s: %w", e.Name, err)
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, nil, models.NewValidationError("", "字段类型错误: "+err.Error())
	}
	return out, changed, nil
}

// Columns 返回字段对应的数据库列名
func Columns(fields []Field) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// toFriendly 将记录编码为以对外字段名为键的 map
func (e Entity[T]) toFriendly(rec T) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromFriendly 将以对外字段名为键的 map 解码为记录
func (e Entity[T]) fromFriendly(doc map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
