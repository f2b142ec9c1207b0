package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"smartbudget/recordsvc"

	"github.com/sirupsen/logrus"
)

// RemoteStore 基于记录服务的实现，对外字段名与服务字段名按 Entity.Fields 互相映射
type RemoteStore[T any] struct {
	client   *recordsvc.Client
	entity   Entity[T]
	pageSize int
	log      logrus.FieldLogger
}

// NewRemoteStore 创建远程存储
func NewRemoteStore[T any](client *recordsvc.Client, entity Entity[T], pageSize int, log logrus.FieldLogger) *RemoteStore[T] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RemoteStore[T]{
		client:   client,
		entity:   entity,
		pageSize: pageSize,
		log:      log.WithField("table", entity.Table),
	}
}

func (s *RemoteStore[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := s.client.FetchAll(ctx, s.entity.Table, s.remoteFields(), s.pageSize)
	if err != nil {
		return nil, &BackendError{Op: "fetch " + s.entity.Table, Err: err}
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := s.decode(row)
		if err != nil {
			return nil, &BackendError{Op: "decode " + s.entity.Table, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RemoteStore[T]) GetByID(ctx context.Context, id int) (T, error) {
	var zero T
	row, err := s.client.GetByID(ctx, s.entity.Table, id, s.remoteFields())
	if errors.Is(err, recordsvc.ErrNotFound) {
		return zero, &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	if err != nil {
		return zero, &BackendError{Op: "get " + s.entity.Table, Err: err}
	}
	rec, err := s.decode(row)
	if err != nil {
		return zero, &BackendError{Op: "decode " + s.entity.Table, Err: err}
	}
	return rec, nil
}

// Create 的 ID 由记录服务分配
func (s *RemoteStore[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	s.entity.applyDefaults(&rec)
	doc, err := s.entity.toFriendly(rec)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", s.entity.Name, err)
	}
	resp, err := s.client.Create(ctx, s.entity.Table, []recordsvc.Record{s.encode(doc, s.entity.Fields)})
	if err != nil {
		return zero, &BackendError{Op: "create " + s.entity.Table, Err: err}
	}
	row, err := s.firstSuccess("create", resp)
	if err != nil {
		return zero, err
	}
	return s.decodeOnto(doc, row)
}

func (s *RemoteStore[T]) Update(ctx context.Context, id int, patch Patch) (T, error) {
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
	doc, err := s.entity.toFriendly(merged)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", s.entity.Name, err)
	}
	row := s.encode(doc, changed)
	row[recordsvc.FieldID] = id

	resp, err := s.client.Update(ctx, s.entity.Table, []recordsvc.Record{row})
	if err != nil {
		return zero, &BackendError{Op: "update " + s.entity.Table, Err: err}
	}
	updated, err := s.firstSuccess("update", resp)
	if err != nil {
		return zero, err
	}
	if updated.ID() == 0 {
		updated[recordsvc.FieldID] = id
	}
	return s.decodeOnto(doc, updated)
}

func (s *RemoteStore[T]) Delete(ctx context.Context, id int) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	resp, err := s.client.Delete(ctx, s.entity.Table, []int{id})
	if err != nil {
		return &BackendError{Op: "delete " + s.entity.Table, Err: err}
	}
	_, err = s.firstSuccess("delete", resp)
	return err
}

// firstSuccess 返回第一条成功记录的数据；失败记录逐条记日志，全部失败时返回 PartialBatchError
func (s *RemoteStore[T]) firstSuccess(op string, resp *recordsvc.BatchResponse) (recordsvc.Record, error) {
	failed := resp.Failed()
	indexes := make([]int, 0, len(failed))
	for i := range failed {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	failures := make([]RecordFailure, 0, len(indexes))
	for _, i := range indexes {
		r := failed[i]
		failure := RecordFailure{Index: i, Message: r.Message}
		for _, fe := range r.Errors {
			failure.Fields = append(failure.Fields, FieldError{Field: s.friendlyName(fe.FieldLabel), Message: fe.Message})
		}
		failures = append(failures, failure)
		s.log.WithFields(logrus.Fields{
			"op":     op,
			"index":  i,
			"detail": failure.String(),
		}).Warn("记录服务批量写入失败")
	}

	succeeded := resp.Succeeded()
	if len(succeeded) == 0 {
		return nil, &PartialBatchError{Op: op + " " + s.entity.Table, Failures: failures}
	}
	if succeeded[0].Data == nil {
		return recordsvc.Record{}, nil
	}
	return succeeded[0].Data, nil
}

func (s *RemoteStore[T]) remoteFields() []string {
	names := []string{recordsvc.FieldID}
	for _, f := range s.entity.Fields {
		names = append(names, f.Remote)
	}
	return names
}

func (s *RemoteStore[T]) friendlyName(remote string) string {
	for _, f := range s.entity.Fields {
		if f.Remote == remote {
			return f.Name
		}
	}
	return remote
}

// encode 按字段映射把对外字段转换为服务字段
func (s *RemoteStore[T]) encode(doc map[string]any, fields []Field) recordsvc.Record {
	row := make(recordsvc.Record, len(fields)+1)
	for _, f := range fields {
		v, ok := doc[f.Name]
		if !ok {
			continue
		}
		if f.ToRemote != nil {
			v = f.ToRemote(v)
		}
		row[f.Remote] = v
	}
	return row
}

func (s *RemoteStore[T]) decode(row recordsvc.Record) (T, error) {
	return s.decodeOnto(nil, row)
}

// decodeOnto 以 base（对外字段）为底，用服务返回的字段覆盖后解码
func (s *RemoteStore[T]) decodeOnto(base map[string]any, row recordsvc.Record) (T, error) {
	doc := make(map[string]any, len(s.entity.Fields)+1)
	for k, v := range base {
		doc[k] = v
	}
	for _, f := range s.entity.Fields {
		v, ok := row[f.Remote]
		if !ok || v == nil {
			continue
		}
		if f.FromRemote != nil {
			v = f.FromRemote(v)
		}
		doc[f.Name] = v
	}
	rec, err := s.entity.fromFriendly(doc)
	if err != nil {
		return rec, err
	}
	s.entity.SetID(&rec, row.ID())
	return rec, nil
}
