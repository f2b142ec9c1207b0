package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartbudget/config"
)

// PushService 通过 Webhook 推送预算提醒（兼容飞书自定义机器人消息格式）
type PushService struct {
	cfg    *config.PushConfig
	client *http.Client
}

// NewPushService 创建推送服务
func NewPushService(cfg *config.PushConfig) *PushService {
	return &PushService{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

type webhookMessage struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendBudgetAlert 推送预算提醒
func (s *PushService) SendBudgetAlert(ctx context.Context, alert BudgetAlert) error {
	if !s.cfg.Enabled || s.cfg.WebhookURL == "" {
		return fmt.Errorf("推送服务未启用")
	}
	var msg webhookMessage
	msg.MsgType = "text"
	msg.Content.Text = alertMessage(alert)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("编码推送消息失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求推送服务失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("推送服务返回状态 %d: %s", resp.StatusCode, string(data))
	}
	var result webhookResponse
	if err := json.Unmarshal(data, &result); err == nil && result.Code != 0 {
		return fmt.Errorf("推送服务返回错误: %s", result.Msg)
	}
	return nil
}
