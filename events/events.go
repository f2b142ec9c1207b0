// Package events 发布记录变更事件，供下游（同步、通知、审计）订阅。
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Action 变更动作
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionDeleted     Action = "deleted"
	ActionContributed Action = "contributed"
)

// RecordEvent 单条记录的变更事件，只携带实体名与 ID，订阅方按需回查
type RecordEvent struct {
	Entity string    `json:"entity"`
	Action Action    `json:"action"`
	ID     int       `json:"id"`
	At     time.Time `json:"at"`
}

// NewRecordEvent 创建事件，At 为当前时间
func NewRecordEvent(entity string, action Action, id int) RecordEvent {
	return RecordEvent{Entity: entity, Action: action, ID: id, At: time.Now()}
}

// RoutingKey 形如 budget.created
func (e RecordEvent) RoutingKey() string {
	return e.Entity + "." + string(e.Action)
}

// ToJSON 序列化事件
func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON 反序列化事件
func RecordEventFromJSON(data []byte) (RecordEvent, error) {
	var e RecordEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher 事件发布。发布失败只记录日志，不影响调用方
type Publisher interface {
	Publish(ctx context.Context, event RecordEvent)
	Close() error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RecordEvent) {}

func (NopPublisher) Close() error { return nil }
