package recordsvc

import "fmt"

// Record 记录服务中的一行，键为存储字段名
type Record map[string]any

// ID 返回记录的 Id 字段
func (r Record) ID() int {
	switch v := r[FieldID].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// FieldID 记录服务的主键字段
const FieldID = "Id"

// OrderBy 排序
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// PagingInfo 分页参数
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FieldRef 字段选择
type FieldRef struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

// FetchParams 查询参数
type FetchParams struct {
	Fields     []FieldRef `json:"fields"`
	OrderBy    []OrderBy  `json:"orderBy,omitempty"`
	PagingInfo PagingInfo `json:"pagingInfo"`
}

// Fields 由字段名构造字段选择列表
func Fields(names ...string) []FieldRef {
	refs := make([]FieldRef, 0, len(names))
	for _, n := range names {
		var ref FieldRef
		ref.Field.Name = n
		refs = append(refs, ref)
	}
	return refs
}

// FetchResponse 查询响应
type FetchResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    []Record `json:"data"`
	Total   int      `json:"total"`
}

// GetResponse 按 ID 查询响应
type GetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Record `json:"data"`
}

// FieldError 字段级错误
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// RecordResult 批量写入中单条记录的结果
type RecordResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    Record       `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// BatchResponse 批量写入响应
type BatchResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results []RecordResult `json:"results"`
}

// Succeeded 返回成功的记录结果
func (b *BatchResponse) Succeeded() []RecordResult {
	var out []RecordResult
	for _, r := range b.Results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Failed 返回失败的记录结果及其在请求中的下标
func (b *BatchResponse) Failed() map[int]RecordResult {
	out := make(map[int]RecordResult)
	for i, r := range b.Results {
		if !r.Success {
			out[i] = r
		}
	}
	return out
}

// APIError 记录服务返回 success=false 或非 2xx 状态
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record service error (status %d): %s", e.StatusCode, e.Message)
}
