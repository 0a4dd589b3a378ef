package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/spreadhub/internal/spread/application"
	"github.com/wyfcoding/spreadhub/internal/spread/infrastructure/messaging"
	"github.com/wyfcoding/spreadhub/internal/spread/infrastructure/persistence/mysql"
	grpchealth "github.com/wyfcoding/spreadhub/internal/spread/interfaces/grpc"
	httphandler "github.com/wyfcoding/spreadhub/internal/spread/interfaces/http"
	"github.com/wyfcoding/spreadhub/pkg/cache"
	"github.com/wyfcoding/spreadhub/pkg/config"
	"github.com/wyfcoding/spreadhub/pkg/db"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"github.com/wyfcoding/spreadhub/pkg/metrics"
	"github.com/wyfcoding/spreadhub/pkg/middleware"
	"github.com/wyfcoding/spreadhub/pkg/mq"
	"github.com/wyfcoding/spreadhub/pkg/ratelimit"
	"github.com/wyfcoding/spreadhub/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const defaultConfigPath = "configs/spread/config.toml"

func main() {
	// 价格与数量以 JSON 数字输出，兼容现有客户端
	decimal.MarshalJSONWithoutQuotes = true

	// 1. 加载配置
	configPath := os.Getenv("SPREAD_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting SpreadService", "version", cfg.Version, "environment", cfg.Environment)
	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "SpreadService exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	// 3. 初始化追踪
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, cfg.ServiceName, cfg.Version, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
			logger.Info(ctx, "Tracer initialized", "endpoint", cfg.Tracing.CollectorEndpoint)
		}
	}

	// 4. 初始化数据库
	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database dir: %w", err)
			}
		}
	}
	gormDB, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		Tracing:            cfg.Tracing.Enabled,
	})
	if err != nil {
		return err
	}
	defer gormDB.Close()

	// 5. 自动迁移数据库
	if cfg.Database.AutoMigrate {
		if err := mysql.AutoMigrate(gormDB.DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// 6. 指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("spread")
		if err := m.Register(prometheus.NewRegistry()); err != nil {
			return err
		}
	}

	// 7. 初始化限流器
	limiter, err := newRateLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	limits, err := routeLimits(cfg.RateLimit)
	if err != nil {
		return err
	}

	// 8. 变更事件发布
	publisher := messaging.NewLogPublisher()
	if cfg.Kafka.Enabled() {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = messaging.NewKafkaPublisher(producer)
	}

	// 9. 初始化层级依赖
	repo := mysql.NewSpreadRepository(gormDB.DB, mysql.Options{MaxPageSize: cfg.Spread.MaxPageSize})
	svc := application.NewSpreadService(repo, publisher, cfg.Spread.MaxPageSize, m)

	httpServer := createHTTPServer(cfg, svc, gormDB, m, httphandler.Options{
		Limiter:  limiter,
		Limits:   limits,
		BotToken: cfg.Auth.BotToken,
	})

	g, gctx := errgroup.WithContext(ctx)

	// 10. 启动 HTTP 服务器
	g.Go(func() error {
		logger.Info(gctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 11. 启动 gRPC 健康检查服务
	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		health := grpchealth.NewHealthServer(gormDB, time.Duration(cfg.GRPC.HealthInterval)*time.Second)
		grpcServer = createGRPCServer(health)

		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC address: %w", err)
		}
		g.Go(func() error {
			logger.Info(gctx, "Starting gRPC server", "addr", cfg.GRPC.Addr())
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error { return health.Run(gctx) })
	}

	// 12. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "Shutting down SpreadService")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		return nil
	})

	return g.Wait()
}

// newRateLimiter 未启用时返回 nil；存储地址不受支持时告警并回退到内存
func newRateLimiter(ctx context.Context, cfg *config.Config) (ratelimit.RateLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if err := cfg.RateLimit.NormalizeStorageURI(); err != nil {
		logger.Warn(ctx, "Falling back to in-memory rate limit storage", "error", err)
	}
	if !cfg.RateLimit.UsesRedis() {
		return ratelimit.NewMemoryRateLimiter(), nil
	}

	client, err := cache.New(ctx, cfg.RateLimit.StorageURI, cache.Config{
		Password:     cfg.Redis.Password,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisRateLimiter(client), nil
}

func routeLimits(cfg config.RateLimitConfig) (httphandler.RouteLimits, error) {
	var out httphandler.RouteLimits
	var err error
	if out.Default, err = ratelimit.ParseLimits(cfg.DefaultLimits); err != nil {
		return out, err
	}
	for _, r := range []struct {
		spec string
		dst  *[]ratelimit.Limit
	}{
		{cfg.GetSpreadsLimit, &out.ListSpreads},
		{cfg.GetSpreadLimit, &out.GetSpread},
		{cfg.CreateSpreadLimit, &out.CreateSpread},
		{cfg.UpdateSpreadLimit, &out.UpdateSpread},
		{cfg.DeleteSpreadLimit, &out.DeleteSpread},
	} {
		if *r.dst, err = ratelimit.ParseLimits([]string{r.spec}); err != nil {
			return out, err
		}
	}
	return out, nil
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(cfg *config.Config, svc *application.SpreadService, database *db.DB, m *metrics.Metrics, opts httphandler.Options) *http.Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	if m != nil {
		router.Use(middleware.MetricsMiddleware(m))
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	// 注册路由
	httphandler.NewHandler(svc).RegisterRoutes(router, opts)

	// 健康检查
	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status, state := http.StatusOK, "healthy"
		if err := database.Ping(ctx); err != nil {
			status, state = http.StatusServiceUnavailable, "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

// createGRPCServer 创建 gRPC 服务器
func createGRPCServer(health *grpchealth.HealthServer) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCRecoveryInterceptor(),
		),
	)

	health.Register(server)
	reflection.Register(server)
	return server
}
