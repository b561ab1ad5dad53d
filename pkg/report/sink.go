package report

import (
	"context"
	"errors"
)

// Sink 是报告的发布目标
type Sink interface {
	// Publish 存储一份已编码的报告，id 由 ID(data) 计算
	Publish(ctx context.Context, id string, data []byte) error
	Close() error
}

// Multi 把报告依次发给所有 sink，任何一个失败都会体现在返回的错误里
type Multi []Sink

func (m Multi) Publish(ctx context.Context, id string, data []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, id, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish 编码报告并发给 sink，返回报告 ID
func Publish(ctx context.Context, s Sink, r *Report) (string, error) {
	data, err := r.Encode()
	if err != nil {
		return "", err
	}
	id := ID(data)
	if err := s.Publish(ctx, id, data); err != nil {
		return id, err
	}
	return id, nil
}
