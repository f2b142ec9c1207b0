// Package recordsvc 是通用表格记录服务的 HTTP 客户端。
//
// 服务以表为单位提供查询（字段选择 + 分页）、按 ID 查询、批量创建、批量更新、
// 按 ID 列表批量删除；批量写入返回逐条结果，成功的带回记录数据，失败的带字段级错误。
package recordsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound 按 ID 查询时记录不存在
var ErrNotFound = errors.New("record not found")

// Config 客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // 默认 30 秒
}

// Client 记录服务客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient 创建记录服务客户端
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// Fetch 查询一页记录
func (c *Client) Fetch(ctx context.Context, table string, params FetchParams) (*FetchResponse, error) {
	var resp FetchResponse
	if err := c.do(ctx, http.MethodPost, c.tableURL(table, "query"), params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return &resp, nil
}

// FetchAll 按 pageSize 分页拉取全部记录，保持服务端返回顺序
func (c *Client) FetchAll(ctx context.Context, table string, fields []string, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []Record
	offset := 0
	for {
		params := FetchParams{
			Fields:     Fields(fields...),
			OrderBy:    []OrderBy{{FieldName: FieldID, SortType: "ASC"}},
			PagingInfo: PagingInfo{Limit: pageSize, Offset: offset},
		}
		page, err := c.Fetch(ctx, table, params)
		if err != nil {
			return nil, fmt.Errorf("fetch %s (offset=%d): %w", table, offset, err)
		}
		all = append(all, page.Data...)
		if len(page.Data) < pageSize {
			break
		}
		offset += pageSize
		if page.Total > 0 && offset >= page.Total {
			break
		}
	}
	return all, nil
}

// GetByID 按 ID 查询单条记录，不存在时返回 ErrNotFound
func (c *Client) GetByID(ctx context.Context, table string, id int, fields []string) (Record, error) {
	u := c.tableURL(table, strconv.Itoa(id))
	if len(fields) > 0 {
		u += "?" + url.Values{"fields": {strings.Join(fields, ",")}}.Encode()
	}
	var resp GetResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	if resp.Data == nil {
		return nil, ErrNotFound
	}
	return resp.Data, nil
}

// Create 批量创建
func (c *Client) Create(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	return c.batch(ctx, http.MethodPost, table, map[string]any{"records": records})
}

// Update 批量更新，每条记录需包含 Id
func (c *Client) Update(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	return c.batch(ctx, http.MethodPut, table, map[string]any{"records": records})
}

// Delete 按 ID 列表批量删除
func (c *Client) Delete(ctx context.Context, table string, ids []int) (*BatchResponse, error) {
	return c.batch(ctx, http.MethodDelete, table, map[string]any{"RecordIds": ids})
}

func (c *Client) batch(ctx context.Context, method, table string, body any) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.do(ctx, method, c.tableURL(table, ""), body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return &resp, nil
}

func (c *Client) tableURL(table, suffix string) string {
	u := fmt.Sprintf("%s/tables/%s/records", c.baseURL, url.PathEscape(table))
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseError(status int, data []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &APIError{StatusCode: status, Message: body.Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}
}
