/*
 * @module service/cleaning_run/query
 * @description 清洗运行与调整明细的分页查询
 * @architecture 服务层 - 查询
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 分页参数规范化 -> gorm 查询 -> 视图转换
 * @rules 运行按创建时间倒序，调整明细按记录顺序；每页最多 500 条
 * @dependencies gorm.io/gorm
 * @refs api/controllers/cleaning_controller.go
 */

package cleaning_run

import (
	"context"
	"errors"
	"fmt"

	"customer-cleanser/service/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// AdjustmentView 调整明细的展示形式，原值和结果值还原为 JSON 值
type AdjustmentView struct {
	Seq      int         `json:"seq"`
	Stage    string      `json:"stage"`
	Column   string      `json:"column"`
	Row      int         `json:"row"`
	Original interface{} `json:"original"`
	Result   interface{} `json:"result"`
	Reason   string      `json:"reason"`
}

// NormalizePage 分页参数规范化：页码默认 1，每页默认 20 条，最多 500 条
func NormalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// GetRun 根据ID获取运行记录
func (s *Service) GetRun(ctx context.Context, id string) (*models.CleaningRun, error) {
	var run models.CleaningRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return &run, nil
}

// ListRuns 分页获取运行记录，最新的在前
func (s *Service) ListRuns(ctx context.Context, page, size int, status string) ([]models.CleaningRun, int64, error) {
	page, size = NormalizePage(page, size)

	var runs []models.CleaningRun
	var total int64

	query := s.db.WithContext(ctx).Model(&models.CleaningRun{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计运行记录失败: %w", err)
	}

	offset := (page - 1) * size
	if err := query.Order("created_at DESC").Offset(offset).Limit(size).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return runs, total, nil
}

// ListAdjustments 分页获取某次运行的调整明细，可按原因过滤
func (s *Service) ListAdjustments(ctx context.Context, runID string, page, size int, reason string) ([]AdjustmentView, int64, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, 0, err
	}
	page, size = NormalizePage(page, size)

	var rows []models.CleaningAdjustment
	var total int64

	query := s.db.WithContext(ctx).Model(&models.CleaningAdjustment{}).Where("run_id = ?", runID)
	if reason != "" {
		query = query.Where("reason = ?", reason)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计调整明细失败: %w", err)
	}

	offset := (page - 1) * size
	if err := query.Order("seq").Offset(offset).Limit(size).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("查询调整明细失败: %w", err)
	}

	views := make([]AdjustmentView, len(rows))
	for i, a := range rows {
		views[i] = AdjustmentView{
			Seq:      a.Seq,
			Stage:    a.Stage,
			Column:   a.ColumnName,
			Row:      a.RowIndex,
			Original: models.DecodeCellValue(a.OriginalValue),
			Result:   models.DecodeCellValue(a.ResultValue),
			Reason:   a.Reason,
		}
	}
	return views, total, nil
}
