/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 */

package api

import (
	"customer-cleanser/api/controllers"
	"customer-cleanser/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	RegisterRoutes(r, service.GlobalCleaningRunService, service.Ready)
}

// RegisterRoutes 使用给定的服务注册路由
func RegisterRoutes(r chi.Router, cleaningService controllers.CleaningRunService, ready func() error) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Run-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(ready)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 数据清洗
	r.Route("/cleaning", func(r chi.Router) {
		cleaningController := controllers.NewCleaningController(cleaningService)
		r.Get("/vocabulary", cleaningController.GetVocabulary)

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", cleaningController.CreateRun)
			r.Get("/", cleaningController.ListRuns)
			r.Get("/{id}", cleaningController.GetRun)
			r.Get("/{id}/adjustments", cleaningController.ListAdjustments)
		})
	})
}
