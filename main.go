package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"customer-cleanser/api"
	_ "customer-cleanser/docs"
	"customer-cleanser/logger"
	"customer-cleanser/service"
	"customer-cleanser/service/config"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 客户数据清洗服务 API
// @version 1.0
// @description 客户数据清洗服务，提供列名标准化、取值标准化、类型修正、缺失值填充与去重，并记录清洗审计
// @BasePath /swagger/customer-cleanser
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)

	if err := service.Init(cfg); err != nil {
		slog.Error("服务初始化失败", "error", err)
		os.Exit(1)
	}
	defer service.Shutdown()

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if cfg.BaseContext != "" {
		mux.Route(cfg.BaseContext, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	slog.Info("客户数据清洗服务启动", "port", cfg.ListenPort, "base_context", cfg.BaseContext)
	s := daprd.NewServiceWithMux(":"+strconv.Itoa(cfg.ListenPort), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("服务异常退出", "error", err)
	}
}
