/*
 * @module MQTTConnector
 * @description MQTT连接器，将清洗运行事件发布到MQTT主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的事件发布接口
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 连接建立 -> 事件发布 -> 连接断开
 * @rules 支持自动重连、QoS控制；发布等待 broker 确认或超时
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
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

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttClient mqtt.Client 中用到的方法
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Broker         string        `json:"broker"`
	ClientID       string        `json:"client_id"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	Topic          string        `json:"topic"`
	QoS            byte          `json:"qos"`
	KeepAlive      time.Duration `json:"keep_alive"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// MQTTPublisher MQTT事件发布器
type MQTTPublisher struct {
	config *MQTTConfig
	client mqttClient
	mutex  sync.Mutex
	sent   int64
}

// NewMQTTPublisher 创建并连接MQTT事件发布器
func NewMQTTPublisher(config *MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if config.KeepAlive > 0 {
		opts.SetKeepAlive(config.KeepAlive)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		slog.Info("MQTT连接成功", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		slog.Warn("MQTT连接丢失", "broker", config.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	return newMQTTPublisher(config, client), nil
}

func newMQTTPublisher(config *MQTTConfig, client mqttClient) *MQTTPublisher {
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 10 * time.Second
	}
	return &MQTTPublisher{config: config, client: client}
}

// Publish 发布运行事件
func (mp *MQTTPublisher) Publish(ctx context.Context, event models.CleaningRunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	token := mp.client.Publish(mp.config.Topic, mp.config.QoS, false, payload)

	timeout := mp.config.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("MQTT发布超时: topic=%s", mp.config.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT发布失败: %w", err)
	}

	mp.mutex.Lock()
	mp.sent++
	mp.mutex.Unlock()

	slog.Debug("事件已发布到MQTT", "topic", mp.config.Topic, "run_id", event.RunID)
	return nil
}

// MessagesSent 已发送消息数
func (mp *MQTTPublisher) MessagesSent() int64 {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	return mp.sent
}

// Close 断开连接
func (mp *MQTTPublisher) Close() error {
	mp.client.Disconnect(250) // 等待250ms让消息发送完成
	slog.Info("MQTT事件发布器已断开连接")
	return nil
}
