package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total" example:"100"`
	Page  int         `json:"page" example:"1"`
	Size  int         `json:"size" example:"20"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 失败响应，err 不为空时拼接到消息后
func ErrorResponse(msg string, err error) *APIResponse {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &APIResponse{Status: 1, Msg: msg}
}

// BadRequestResponse 请求参数错误
func BadRequestResponse(msg string, err error) *APIResponse {
	return ErrorResponse(msg, err)
}

// InternalErrorResponse 服务器内部错误
func InternalErrorResponse(msg string, err error) *APIResponse {
	return ErrorResponse(msg, err)
}

// renderError 按HTTP状态码输出失败响应
func renderError(w http.ResponseWriter, r *http.Request, code int, resp *APIResponse) {
	render.Status(r, code)
	render.JSON(w, r, resp)
}
