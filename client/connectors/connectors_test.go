package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"customer-cleanser/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() models.CleaningRunEvent {
	return models.CleaningRunEvent{
		EventType: models.EventRunCompleted,
		RunID:     "run-1",
		Source:    "customers.csv",
		Status:    models.RunStatusSuccess,
		RowsIn:    11,
		RowsOut:   10,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(&KafkaConfig{Topic: "cleaning-runs"}, writer)

	require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "run-1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, models.EventRunCompleted, string(msg.Headers[0].Value))

	var decoded models.CleaningRunEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 10, decoded.RowsOut)
	assert.Equal(t, int64(1), publisher.MessagesSent())

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
	assert.Error(t, publisher.Publish(context.Background(), sampleEvent()), "关闭后不能再发布")
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	publisher := newKafkaPublisher(&KafkaConfig{Topic: "cleaning-runs"}, writer)

	err := publisher.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "leader not available")
	assert.Zero(t, publisher.MessagesSent())
}

type fakeToken struct {
	done chan struct{}
	err  error
	wait bool
}

func newFakeToken(err error, completes bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err, wait: completes}
	if completes {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { return t.wait }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return t.wait }
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error { return t.err }

type fakeMQTTClient struct {
	topics       []string
	payloads     [][]byte
	token        mqtt.Token
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return c.token
}

func (c *fakeMQTTClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTTPublisher_Publish(t *testing.T) {
	testCases := []struct {
		name    string
		token   mqtt.Token
		wantErr bool
	}{
		{"发布成功", newFakeToken(nil, true), false},
		{"broker 返回错误", newFakeToken(errors.New("not authorized"), true), true},
		{"等待超时", newFakeToken(nil, false), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeMQTTClient{token: tc.token}
			publisher := newMQTTPublisher(&MQTTConfig{Topic: "cleaning/runs", QoS: 1}, client)

			err := publisher.Publish(context.Background(), sampleEvent())
			if tc.wantErr {
				assert.Error(t, err)
				assert.Zero(t, publisher.MessagesSent())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"cleaning/runs"}, client.topics)
			assert.Contains(t, string(client.payloads[0]), `"run_id":"run-1"`)
			assert.Equal(t, int64(1), publisher.MessagesSent())

			require.NoError(t, publisher.Close())
			assert.True(t, client.disconnected)
		})
	}
}

// TestRedisCache 需要可用的 Redis，通过 REDIS_TEST_ADDR 指定
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("未设置 REDIS_TEST_ADDR，跳过 Redis 集成测试")
	}

	cache := NewRedisCache(&RedisConfig{Address: addr, DialTimeout: time.Second})
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	key := "customer-cleanser:test:" + time.Now().Format("150405.000000")
	defer cache.Delete(ctx, key)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"a":1}`), time.Minute))
	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(data))

	stats := cache.GetStatistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_Unreachable(t *testing.T) {
	cache := NewRedisCache(&RedisConfig{Address: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, cache.Ping(ctx))
	_, ok, err := cache.Get(ctx, "any")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.GetStatistics().Errors)
}
