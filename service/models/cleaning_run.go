/*
 * @module service/models/cleaning_run
 * @description 清洗运行记录与值调整审计模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 运行创建 -> 成功/失败；成功运行附带调整明细
 * @rules 调整明细中的原值和结果值以 JSON 文本保存，保留原始类型
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/cleaning_run/service.go
 */

package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 运行状态
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// CleaningRun 一次清洗运行
type CleaningRun struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	Source            string    `json:"source" gorm:"size:255;index" example:"customers.csv"`
	Fingerprint       string    `json:"fingerprint" gorm:"size:64;index"` // 输入内容与映射表的 blake2b 摘要
	Status            string    `json:"status" gorm:"not null;size:20;index" example:"success"`
	RowsIn            int       `json:"rows_in" gorm:"default:0" example:"11"`
	RowsOut           int       `json:"rows_out" gorm:"default:0" example:"10"`
	DuplicatesRemoved int       `json:"duplicates_removed" gorm:"default:0" example:"1"`
	AdjustmentCount   int       `json:"adjustment_count" gorm:"default:0" example:"3"`
	Summary           JSONB     `json:"summary,omitempty" gorm:"type:jsonb"` // 按阶段/原因统计、中位数、众数、列名映射
	ErrorMessage      string    `json:"error_message,omitempty" gorm:"type:text"`
	Cached            bool      `json:"cached" gorm:"default:false"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DurationMs        int64     `json:"duration_ms" example:"12"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedBy         string    `json:"created_by" gorm:"not null;default:'system';size:100" example:"system"`
}

// TableName 表名
func (CleaningRun) TableName() string {
	return "cleaning_runs"
}

// BeforeCreate GORM钩子，创建前生成UUID并验证
func (r *CleaningRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedBy == "" {
		r.CreatedBy = "system"
	}
	if r.Status != RunStatusSuccess && r.Status != RunStatusFailed {
		return errors.New("无效的运行状态: " + r.Status)
	}
	return nil
}

// CleaningAdjustment 一次值调整的审计明细
type CleaningAdjustment struct {
	ID            uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID         string `json:"run_id" gorm:"not null;type:varchar(36);index"`
	Seq           int    `json:"seq" gorm:"not null"` // 运行内的记录顺序
	Stage         string `json:"stage" gorm:"not null;size:50;index" example:"type_corrector"`
	ColumnName    string `json:"column" gorm:"size:100" example:"income"`
	RowIndex      int    `json:"row" example:"3"`
	OriginalValue string `json:"original" gorm:"type:text" example:"\"abc\""`
	ResultValue   string `json:"result" gorm:"type:text" example:"48767"`
	Reason        string `json:"reason" gorm:"not null;size:50;index" example:"unparsable_number"`
}

// TableName 表名
func (CleaningAdjustment) TableName() string {
	return "cleaning_adjustments"
}

// EncodeCellValue 单元格值编码为 JSON 文本，缺失值为 null
func EncodeCellValue(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// DecodeCellValue 解析 EncodeCellValue 的结果
func DecodeCellValue(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// 运行事件类型
const (
	EventRunCompleted = "cleaning.run.completed"
	EventRunFailed    = "cleaning.run.failed"
)

// CleaningRunEvent 运行结束后发布到消息系统的事件
type CleaningRunEvent struct {
	EventType         string         `json:"event_type"`
	RunID             string         `json:"run_id"`
	Source            string         `json:"source"`
	Status            string         `json:"status"`
	RowsIn            int            `json:"rows_in"`
	RowsOut           int            `json:"rows_out"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	AdjustmentCounts  map[string]int `json:"adjustment_counts,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Cached            bool           `json:"cached"`
	Timestamp         time.Time      `json:"timestamp"`
}

// NewRunEvent 由运行记录构造事件
func NewRunEvent(run *CleaningRun, counts map[string]int) CleaningRunEvent {
	eventType := EventRunCompleted
	if run.Status == RunStatusFailed {
		eventType = EventRunFailed
	}
	return CleaningRunEvent{
		EventType:         eventType,
		RunID:             run.ID,
		Source:            run.Source,
		Status:            run.Status,
		RowsIn:            run.RowsIn,
		RowsOut:           run.RowsOut,
		DuplicatesRemoved: run.DuplicatesRemoved,
		AdjustmentCounts:  counts,
		ErrorMessage:      run.ErrorMessage,
		Cached:            run.Cached,
		Timestamp:         run.EndTime,
	}
}
