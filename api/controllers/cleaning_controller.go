/*
 * @module api/controllers/cleaning_controller
 * @description 客户数据清洗控制器：提交清洗、查询运行记录与调整明细、查看映射表
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow HTTP请求 -> 参数解析 -> cleaning_run 服务 -> 统一响应
 * @rules 输入错误返回400，数据结构不满足清洗要求返回422，运行不存在返回404
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/cleaning_run/service.go
 */

package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"customer-cleanser/service/cleaning"
	"customer-cleanser/service/cleaning_run"
	"customer-cleanser/service/datasource"
	"customer-cleanser/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const maxUploadBytes = 64 << 20

// CleaningRunService 控制器依赖的清洗运行服务
type CleaningRunService interface {
	Run(ctx context.Context, req cleaning_run.RunRequest) (*cleaning_run.RunResult, error)
	GetRun(ctx context.Context, id string) (*models.CleaningRun, error)
	ListRuns(ctx context.Context, page, size int, status string) ([]models.CleaningRun, int64, error)
	ListAdjustments(ctx context.Context, runID string, page, size int, reason string) ([]cleaning_run.AdjustmentView, int64, error)
	Vocabulary() cleaning.Vocabulary
	Stages() []string
}

// CleaningController 清洗控制器
type CleaningController struct {
	service CleaningRunService
}

// NewCleaningController 创建清洗控制器实例
func NewCleaningController(service CleaningRunService) *CleaningController {
	return &CleaningController{service: service}
}

// CreateRunRequest JSON 格式的清洗请求
type CreateRunRequest struct {
	Source  string                   `json:"source" example:"crm-export"`
	Columns []string                 `json:"columns" example:"Customer,ST,GENDER"`
	Records []map[string]interface{} `json:"records"`
}

// Bind render.Binder 校验
func (req *CreateRunRequest) Bind(r *http.Request) error {
	if len(req.Columns) == 0 {
		return errors.New("columns 不能为空")
	}
	return nil
}

// RunResponse 清洗结果
type RunResponse struct {
	Run         *models.CleaningRun   `json:"run"`
	Cached      bool                  `json:"cached"`
	Columns     []string              `json:"columns"`
	Rows        [][]interface{}       `json:"rows"`
	Adjustments []cleaning.StageCount `json:"adjustments,omitempty"`
}

// VocabularyResponse 映射表与阶段
type VocabularyResponse struct {
	Stages     []string            `json:"stages"`
	Vocabulary cleaning.Vocabulary `json:"vocabulary"`
}

// CreateRun 提交清洗
// @Summary 提交客户数据清洗
// @Description 提交 JSON 记录或 CSV 文本执行清洗；Accept 为 text/csv 时直接返回清洗后的 CSV
// @Tags 数据清洗
// @Accept json
// @Accept text/csv
// @Produce json
// @Produce text/csv
// @Param request body CreateRunRequest false "JSON 清洗请求"
// @Param source query string false "数据来源名称（CSV 请求）"
// @Param encoding query string false "CSV 字符集" Enums(utf-8,gbk,gb18030,latin1,windows-1252,utf-16)
// @Success 200 {object} APIResponse{data=RunResponse} "清洗成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 422 {object} APIResponse{data=models.CleaningRun} "数据无法清洗"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /cleaning/runs [post]
func (c *CleaningController) CreateRun(w http.ResponseWriter, r *http.Request) {
	req, err := c.parseRunRequest(w, r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, BadRequestResponse("请求参数错误", err))
		return
	}

	result, err := c.service.Run(r.Context(), req)
	if err != nil {
		c.renderRunError(w, r, result, err)
		return
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("X-Run-ID", result.Run.ID)
		if err := datasource.WriteCSV(w, result.Table); err != nil {
			renderError(w, r, http.StatusInternalServerError, InternalErrorResponse("输出CSV失败", err))
		}
		return
	}

	response := RunResponse{
		Run:     result.Run,
		Cached:  result.Cached,
		Columns: result.Table.Columns(),
		Rows:    make([][]interface{}, result.Table.NumRows()),
	}
	for i := range response.Rows {
		response.Rows[i] = result.Table.Row(i)
	}
	if result.Report != nil {
		response.Adjustments = result.Report.CountByStage()
	}

	render.JSON(w, r, SuccessResponse("清洗成功", response))
}

func (c *CleaningController) parseRunRequest(w http.ResponseWriter, r *http.Request) (cleaning_run.RunRequest, error) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	query := r.URL.Query()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" || mediaType == "application/csv" || mediaType == "text/plain" {
		data, err := io.ReadAll(body)
		if err != nil {
			return cleaning_run.RunRequest{}, fmt.Errorf("读取请求体失败: %w", err)
		}
		if len(data) == 0 {
			return cleaning_run.RunRequest{}, errors.New("CSV 内容为空")
		}
		return cleaning_run.RunRequest{
			Source:    query.Get("source"),
			CSV:       data,
			Encoding:  query.Get("encoding"),
			CreatedBy: "api",
		}, nil
	}

	r.Body = body
	var payload CreateRunRequest
	if err := render.Bind(r, &payload); err != nil {
		return cleaning_run.RunRequest{}, err
	}
	return cleaning_run.RunRequest{
		Source:    payload.Source,
		Records:   payload.Records,
		Columns:   payload.Columns,
		CreatedBy: "api",
	}, nil
}

func (c *CleaningController) renderRunError(w http.ResponseWriter, r *http.Request, result *cleaning_run.RunResult, err error) {
	switch {
	case errors.Is(err, cleaning_run.ErrInvalidInput):
		renderError(w, r, http.StatusBadRequest, BadRequestResponse("输入数据无效", err))
	case errors.Is(err, cleaning.ErrColumnNotFound),
		errors.Is(err, cleaning.ErrEmptyColumn),
		errors.Is(err, cleaning.ErrColumnLength),
		errors.Is(err, cleaning.ErrDuplicateName):
		resp := ErrorResponse("数据无法清洗", err)
		if result != nil {
			resp.Data = result.Run
		}
		renderError(w, r, http.StatusUnprocessableEntity, resp)
	default:
		renderError(w, r, http.StatusInternalServerError, InternalErrorResponse("清洗失败", err))
	}
}

func wantsCSV(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Accept"))
	return mediaType == "text/csv"
}

// ListRuns 获取运行记录列表
// @Summary 获取清洗运行列表
// @Description 分页获取清洗运行记录，最新的在前
// @Tags 数据清洗
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Param status query string false "运行状态" Enums(success,failed)
// @Success 200 {object} APIResponse{data=PaginatedResponse{list=[]models.CleaningRun}} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /cleaning/runs [get]
func (c *CleaningController) ListRuns(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	runs, total, err := c.service.ListRuns(r.Context(), page, size, r.URL.Query().Get("status"))
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, InternalErrorResponse("获取运行列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取运行列表成功", PaginatedResponse{
		List:  runs,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// GetRun 获取运行详情
// @Summary 获取清洗运行详情
// @Description 根据ID获取清洗运行记录
// @Tags 数据清洗
// @Produce json
// @Param id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.CleaningRun} "获取成功"
// @Failure 404 {object} APIResponse "运行不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /cleaning/runs/{id} [get]
func (c *CleaningController) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		c.renderLookupError(w, r, "获取运行详情失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("获取运行详情成功", run))
}

// ListAdjustments 获取调整明细
// @Summary 获取清洗运行的值调整明细
// @Description 分页获取某次运行中被替换的值及原因，可按原因过滤
// @Tags 数据清洗
// @Produce json
// @Param id path string true "运行ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Param reason query string false "调整原因" Enums(unmapped_category,non_text,unparsable_number,unparsable_count,missing_count,negative_count,rounded_up,median_imputed,mode_imputed,duplicate_row)
// @Success 200 {object} APIResponse{data=PaginatedResponse{list=[]cleaning_run.AdjustmentView}} "获取成功"
// @Failure 404 {object} APIResponse "运行不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /cleaning/runs/{id}/adjustments [get]
func (c *CleaningController) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	views, total, err := c.service.ListAdjustments(r.Context(), chi.URLParam(r, "id"), page, size, r.URL.Query().Get("reason"))
	if err != nil {
		c.renderLookupError(w, r, "获取调整明细失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("获取调整明细成功", PaginatedResponse{
		List:  views,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// GetVocabulary 获取映射表
// @Summary 获取当前映射表
// @Description 返回流水线阶段和分类取值映射表
// @Tags 数据清洗
// @Produce json
// @Success 200 {object} APIResponse{data=VocabularyResponse} "获取成功"
// @Router /cleaning/vocabulary [get]
func (c *CleaningController) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取映射表成功", VocabularyResponse{
		Stages:     c.service.Stages(),
		Vocabulary: c.service.Vocabulary(),
	}))
}

func (c *CleaningController) renderLookupError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, cleaning_run.ErrRunNotFound) {
		renderError(w, r, http.StatusNotFound, ErrorResponse(msg, err))
		return
	}
	renderError(w, r, http.StatusInternalServerError, InternalErrorResponse(msg, err))
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return cleaning_run.NormalizePage(page, size)
}
