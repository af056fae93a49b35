/*
 * @module service/config/config
 * @description 服务配置：从环境变量加载并校验运行参数
 * @architecture 配置层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 环境变量 -> 类型转换 -> 结构校验 -> Config
 * @rules 所有配置项都有默认值；校验失败时服务拒绝启动
 * @dependencies github.com/spf13/cast, github.com/go-playground/validator/v10
 * @refs service/init.go, main.go
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// 事件发布方式
const (
	EventSinkNone  = "none"
	EventSinkKafka = "kafka"
	EventSinkMQTT  = "mqtt"
)

// 数据库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config 服务配置
type Config struct {
	ListenPort     int    `validate:"min=1,max=65535"`
	BaseContext    string `validate:"omitempty,startswith=/"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	VocabularyFile string
	InputEncoding  string `validate:"required"`

	Database DatabaseConfig
	Events   EventConfig
	Cache    CacheConfig
	Inbox    InboxConfig
}

// DatabaseConfig 审计库配置
type DatabaseConfig struct {
	Driver     string `validate:"oneof=postgres sqlite"`
	URL        string
	Host       string `validate:"required_without=URL"`
	Port       int    `validate:"min=1,max=65535"`
	User       string
	Password   string
	Name       string
	SSLMode    string
	Schema     string
	SQLitePath string `validate:"required_if=Driver sqlite"`
}

// DSN postgres 连接串，优先使用 DATABASE_URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Schema)
}

// EventConfig 运行事件发布配置
type EventConfig struct {
	Sink         string   `validate:"oneof=none kafka mqtt"`
	KafkaBrokers []string `validate:"required_if=Sink kafka,dive,hostname_port"`
	KafkaTopic   string   `validate:"required_if=Sink kafka"`
	MQTTBroker   string   `validate:"required_if=Sink mqtt"`
	MQTTTopic    string   `validate:"required_if=Sink mqtt"`
	MQTTClientID string
}

// CacheConfig 结果缓存配置，RedisAddr 为空时不启用缓存
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"min=0,max=15"`
	TTL           time.Duration `validate:"min=0"`
}

// Enabled 是否启用缓存
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// InboxConfig 定时清洗目录配置，Dir 为空时不启用
type InboxConfig struct {
	Dir    string
	OutDir string `validate:"required_with=Dir"`
	Cron   string `validate:"required_with=Dir"`
}

// Enabled 是否启用定时清洗
func (c InboxConfig) Enabled() bool {
	return c.Dir != "" && c.Cron != ""
}

// Load 从进程环境变量加载配置
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom 从给定的查找函数加载配置
func LoadFrom(getenv func(string) string) (*Config, error) {
	env := func(key, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		ListenPort:     cast.ToInt(env("LISTEN_PORT", "80")),
		BaseContext:    env("BASE_CONTEXT", ""),
		LogLevel:       strings.ToLower(env("LOG_LEVEL", "info")),
		VocabularyFile: env("VOCABULARY_FILE", ""),
		InputEncoding:  env("INPUT_ENCODING", "utf-8"),
		Database: DatabaseConfig{
			Driver:     env("DB_DRIVER", DriverPostgres),
			URL:        env("DATABASE_URL", ""),
			Host:       env("DB_HOST", "localhost"),
			Port:       cast.ToInt(env("DB_PORT", "5432")),
			User:       env("DB_USER", "postgres"),
			Password:   env("DB_PASSWORD", "things2024"),
			Name:       env("DB_NAME", "postgres"),
			SSLMode:    env("DB_SSLMODE", "disable"),
			Schema:     env("DB_SCHEMA", "public"),
			SQLitePath: env("SQLITE_PATH", "customer_cleanser.db"),
		},
		Events: EventConfig{
			Sink:         strings.ToLower(env("EVENT_SINK", EventSinkNone)),
			KafkaBrokers: splitList(env("KAFKA_BROKERS", "")),
			KafkaTopic:   env("KAFKA_TOPIC", "cleaning-runs"),
			MQTTBroker:   env("MQTT_BROKER", ""),
			MQTTTopic:    env("MQTT_TOPIC", "cleaning/runs"),
			MQTTClientID: env("MQTT_CLIENT_ID", "customer-cleanser"),
		},
		Cache: CacheConfig{
			RedisAddr:     env("REDIS_ADDR", ""),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       cast.ToInt(env("REDIS_DB", "0")),
			TTL:           time.Duration(cast.ToInt64(env("CACHE_TTL_SECONDS", "3600"))) * time.Second,
		},
		Inbox: InboxConfig{
			Dir:    env("INBOX_DIR", ""),
			OutDir: env("OUTBOX_DIR", ""),
			Cron:   env("INBOX_CRON", ""),
		},
	}

	if cfg.Inbox.Dir != "" && cfg.Inbox.OutDir == "" {
		cfg.Inbox.OutDir = cfg.Inbox.Dir + "/cleaned"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New()

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidationError 单个字段的校验错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors 校验错误集合
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("配置校验失败: %d 个错误: [%s]", len(v), strings.Join(messages, "; "))
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if", "required_with", "required_without":
			message = fmt.Sprintf("%s 不能为空", err.Namespace())
		case "min":
			message = fmt.Sprintf("%s 不能小于 %s", err.Namespace(), err.Param())
		case "max":
			message = fmt.Sprintf("%s 不能大于 %s", err.Namespace(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s 必须是以下之一: %s", err.Namespace(), err.Param())
		case "startswith":
			message = fmt.Sprintf("%s 必须以 %s 开头", err.Namespace(), err.Param())
		case "hostname_port":
			message = fmt.Sprintf("%s 必须是 host:port 格式", err.Namespace())
		}

		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}
	return out
}
