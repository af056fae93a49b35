/*
 * @module KafkaConnector
 * @description Kafka连接器，将清洗运行事件序列化为JSON并发布到Kafka主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的事件发布接口
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 创建生产者 -> 事件发布 -> 关闭
 * @rules 以运行ID作为消息键，保证同一运行的事件落在同一分区
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/models/cleaning_run.go, service/cleaning_run/service.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"customer-cleanser/service/models"

	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 中用到的方法
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Async        bool          `json:"async"`
}

// KafkaPublisher Kafka事件发布器
type KafkaPublisher struct {
	config *KafkaConfig
	writer messageWriter
	mutex  sync.Mutex
	sent   int64
	closed bool
}

// NewKafkaPublisher 创建新的Kafka事件发布器
func NewKafkaPublisher(config *KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        config.Async,
	}
	slog.Info("Kafka事件发布器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return newKafkaPublisher(config, writer)
}

func newKafkaPublisher(config *KafkaConfig, writer messageWriter) *KafkaPublisher {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	return &KafkaPublisher{config: config, writer: writer}
}

// Publish 发布运行事件
func (kp *KafkaPublisher) Publish(ctx context.Context, event models.CleaningRunEvent) error {
	kp.mutex.Lock()
	closed := kp.closed
	kp.mutex.Unlock()
	if closed {
		return fmt.Errorf("Kafka发布器已关闭")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, kp.config.WriteTimeout)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	kp.mutex.Lock()
	kp.sent++
	kp.mutex.Unlock()

	slog.Debug("事件已发送到Kafka", "topic", kp.config.Topic, "run_id", event.RunID)
	return nil
}

// MessagesSent 已发送消息数
func (kp *KafkaPublisher) MessagesSent() int64 {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()
	return kp.sent
}

// Close 关闭生产者
func (kp *KafkaPublisher) Close() error {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()
	if kp.closed {
		return nil
	}
	kp.closed = true
	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("关闭Kafka生产者失败: %w", err)
	}
	slog.Info("Kafka事件发布器已关闭")
	return nil
}
