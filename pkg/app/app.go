// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/jobs"
	"github.com/yeisme/filevault/pkg/internal/router"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/storage"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/metrics"
	"github.com/yeisme/filevault/pkg/middleware"
	"github.com/yeisme/filevault/pkg/rule"
	"github.com/yeisme/filevault/pkg/scheduler"
	"github.com/yeisme/filevault/pkg/tracing"
)

// shutdownTimeout 优雅停机的等待上限.
const shutdownTimeout = 15 * time.Second

// App 聚合 HTTP 引擎、存储栈与后台调度器.
type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
}

// NewApp 按配置完成全部初始化并装配路由. 初始化失败直接退出进程.
func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()

	log.Init()

	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 提前接管 gin 共享的校验引擎，首个请求绑定时 rule 标签即已生效
	rule.Engine()

	engine := gin.New()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	ctx = ctxPkg.WithStorageManager(ctx, manager)

	// 表结构迁移与内置会员等级
	if err := manager.GetDBClient().Migrate(); err != nil {
		fmt.Printf("Error migrating database: %v\n", err)
		os.Exit(1)
	}

	if err := service.EnsureDefaultLevels(ctx, manager.GetDBClient().DB); err != nil {
		fmt.Printf("Error seeding membership levels: %v\n", err)
		os.Exit(1)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.AuthMiddleware(config.Auth),
		middleware.StorageMiddleware(manager),
	)

	if config.Tracing.Enabled {
		engine.Use(middleware.TracingMiddleware())
	}

	if config.Metrics.Enabled {
		engine.Use(middleware.PrometheusMiddleware())
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	router.Setup(engine)

	// 后台任务：订阅到期扫描
	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error creating scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterCronJobs(ctx, sched); err != nil {
		fmt.Printf("Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	return &App{
		Engine:    engine,
		config:    config,
		manager:   manager,
		scheduler: sched,
	}
}

// Run 启动HTTP服务与调度器，并在收到终止信号后优雅停机.
func (a *App) Run() error {
	l := log.Logger()

	a.scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.shutdown(nil)
		return err
	case sig := <-quit:
		l.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := contextPkg.WithTimeout(contextPkg.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	a.shutdown(ctx)

	return err
}

// shutdown 停掉调度器、追踪与存储栈.
func (a *App) shutdown(ctx contextPkg.Context) {
	l := log.Logger()

	if err := a.scheduler.Stop(); err != nil {
		l.Warn().Err(err).Msg("scheduler stop failed")
	}

	if ctx == nil {
		var cancel contextPkg.CancelFunc

		ctx, cancel = contextPkg.WithTimeout(contextPkg.Background(), shutdownTimeout)
		defer cancel()
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		l.Warn().Err(err).Msg("tracer shutdown failed")
	}

	if err := a.manager.Close(); err != nil {
		l.Warn().Err(err).Msg("storage close failed")
	}
}
