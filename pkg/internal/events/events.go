package events

import (
	"context"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"

	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	flog "github.com/yeisme/filevault/pkg/log"
)

const (
	PayloadVersionV1 = "v1"

	// 事件生产者标识.
	producerName = "filevault"
)

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...func(*EventHeader)) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		Producer:   producerName,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// WithTraceID 设置 TraceID.
func WithTraceID(id string) func(*EventHeader) { return func(h *EventHeader) { h.TraceID = id } }

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造一个 watermill 消息，设置 ID 与元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...func(*EventHeader)) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)
	env := Message[T]{Header: header, Payload: payload}

	data, err := Encode(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	msg.Metadata.Set("producer", header.Producer)
	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))
	msg.Metadata.Set("version", header.Version)

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}

// Publish 构造并发布单个事件. MQ 未启用（client 为 nil）时为空操作；
// 发布失败只记日志，事件是尽力而为的通知，不回滚业务操作.
func Publish[T any](ctx context.Context, client *mq.Client, topic string, payload T, opts ...func(*EventHeader)) {
	if client == nil {
		return
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		flog.Logger().Error().Err(err).Str("topic", topic).Msg("构造事件消息失败")
		return
	}

	if err := client.Publish(ctx, topic, msg); err != nil {
		flog.Logger().Error().Err(err).Str("topic", topic).Msg("发布事件失败")
	}
}
