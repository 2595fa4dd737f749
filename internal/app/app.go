// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/kotakun/internal/advice"
	"github.com/hitoshi/kotakun/internal/config"
	"github.com/hitoshi/kotakun/internal/counseling"
	"github.com/hitoshi/kotakun/internal/database"
	"github.com/hitoshi/kotakun/internal/handler"
	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/logger"
	"github.com/hitoshi/kotakun/internal/metrics"
	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/repository"
	"github.com/hitoshi/kotakun/internal/security"
	"github.com/hitoshi/kotakun/internal/webhook"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, ParseMigrateAction(args))
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 保存先に接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. 外部APIのURL検証
	ssrfGuard := security.NewSSRFGuard()
	for _, u := range []string{cfg.LINEAPIBaseURL, cfg.GeminiAPIBaseURL, cfg.LIFFURL} {
		if err := ssrfGuard.ValidateURL(u); err != nil {
			return fmt.Errorf("invalid upstream URL %q: %w", u, err)
		}
	}

	// 2. 保存先の初期化
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 4. 外部APIクライアントの初期化
	lineClient := line.NewClient(
		ssrfGuard.NewSafeClient(cfg.UpstreamTimeout, security.HostOf(cfg.LINEAPIBaseURL)),
		line.ClientConfig{AccessToken: cfg.LINEChannelAccessToken, BaseURL: cfg.LINEAPIBaseURL},
		slog.Default(), collector,
	)
	geminiClient := advice.NewGeminiClient(
		ssrfGuard.NewSafeClient(cfg.UpstreamTimeout, security.HostOf(cfg.GeminiAPIBaseURL)),
		advice.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiAPIBaseURL},
		slog.Default(), collector,
	)

	// 5. ドメインサービスの初期化
	templates := line.NewTemplates(cfg.LIFFLinkURL())
	dispatcher := webhook.NewDispatcher(lineClient, templates, collector, slog.Default(), cfg.DispatchConcurrency)
	counselingService := counseling.NewService(store, collector, slog.Default())
	adviceService := advice.NewService(store, geminiClient, advice.NewPromptBuilder(nil), slog.Default())

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAI),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TrustedProxies:    cfg.TrustedProxies,
		Metrics:           collector,
		MetricsGatherer:   registry,
		HealthChecker:     store,
		ChannelSecret:     cfg.LINEChannelSecret,
		EventDispatcher:   dispatcher,
		CounselingService: counselingService,
		AdviceService:     adviceService,
		MessagePusher:     lineClient,
		Templates:         templates,
	})

	// 7. HTTPサーバーの起動
	// WriteTimeoutはGeminiの応答待ちを含むため上流タイムアウトより長くする
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// openStore は設定されたバックエンドのCounselingStoreを開く。
// 戻り値の関数で接続を閉じる。
func openStore(ctx context.Context, cfg *config.Config) (repository.CounselingStore, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return repository.NewRedisCounselingStore(rdb), rdb.Close, nil

	default:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresCounselingStore(db), db.Close, nil
	}
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connection established")
	return db, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// Redisバックエンドではスキーマを持たないため何もしない。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	if cfg.StoreBackend != config.StoreBackendPostgres {
		slog.Info("migrations skipped for non-postgres backend",
			slog.String("store_backend", cfg.StoreBackend),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migration rolled back")

	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("database migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)

	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
