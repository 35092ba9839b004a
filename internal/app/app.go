package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bankmock/internal/config"
	"github.com/hitoshi/bankmock/internal/database"
	"github.com/hitoshi/bankmock/internal/fixture"
	"github.com/hitoshi/bankmock/internal/handler"
	"github.com/hitoshi/bankmock/internal/ledger"
	"github.com/hitoshi/bankmock/internal/link"
	"github.com/hitoshi/bankmock/internal/logger"
	"github.com/hitoshi/bankmock/internal/metrics"
	"github.com/hitoshi/bankmock/internal/middleware"
	"github.com/hitoshi/bankmock/internal/repository"
	"github.com/hitoshi/bankmock/internal/token"
)

// logLevel は設定読み込み後にLOG_LEVELで切り替えるためのレベル。
var logLevel = new(slog.LevelVar)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logLevel.Set(slog.LevelInfo)
	logger.SetupDefault(w, logLevel)

	// 2. .envを読み込む（存在しない場合は環境変数のみ）
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env file, continuing with environment variables only",
			slog.String("error", err.Error()),
		)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("invalid LOG_LEVEL, using info", slog.String("error", err.Error()))
	}
	logLevel.Set(level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandImport:
		return runImport(cfg, args[1:])
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// フィクスチャを読み込み、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := loadFixtureStore(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, store, metrics.NewRegistry())
	if err != nil {
		return err
	}
	defer srv.close()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", srv.Addr),
			slog.Int("personas", store.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// server はHTTPサーバーと、停止時に解放するリソースをまとめたもの。
type server struct {
	*http.Server
	rateLimiter *middleware.RateLimiter
}

func (s *server) close() {
	s.rateLimiter.Stop()
}

// newServer はフィクスチャストアから全サービスを組み立て、HTTPサーバーを生成する。
func newServer(cfg *config.Config, store *fixture.Store, registry *prometheus.Registry) (*server, error) {
	if cfg.SigningSecretDefaulted {
		slog.Warn("TOKEN_SIGNING_SECRET is not set, using the built-in development secret")
	}

	tokens, err := token.NewService(token.Config{
		SigningKey: []byte(cfg.TokenSigningSecret),
		TTL:        cfg.TokenTTL,
		Issuer:     cfg.TokenIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	collector := metrics.NewCollector(registry)
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitExchange),
		collector,
	)

	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            slog.Default(),

		Metrics:         collector,
		MetricsGatherer: registry,

		LinkService: link.NewService(store, tokens, link.ServiceConfig{
			LinkTokenTTL: cfg.LinkTokenTTL,
		}),
		LedgerService: ledger.NewService(store),
		Personas:      store,
	})

	return &server{
		Server: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		rateLimiter: rateLimiter,
	}, nil
}

// loadFixtureStore は設定に応じてフィクスチャストアを構築する。
// 優先順位: FIXTURES_DATABASE_URL → FIXTURES_DIR → 埋め込みフィクスチャ。
func loadFixtureStore(ctx context.Context, cfg *config.Config) (*fixture.Store, error) {
	switch {
	case cfg.FixturesDatabaseURL != "":
		db, err := database.Connect(ctx, cfg.FixturesDatabaseURL)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		personas, err := repository.NewPostgresPersonaRepo(db).LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixtures from database: %w", err)
		}
		if len(personas) == 0 {
			return nil, fmt.Errorf("failed to load fixtures from database: %w", fixture.ErrNoPersonas)
		}

		slog.Info("fixtures loaded",
			slog.String("source", "database"),
			slog.String("database_url", maskDatabaseURL(cfg.FixturesDatabaseURL)),
			slog.Int("personas", len(personas)),
		)
		return fixture.NewStore(personas), nil

	case cfg.FixturesDir != "":
		store, err := fixture.LoadDir(cfg.FixturesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixtures from %s: %w", cfg.FixturesDir, err)
		}
		slog.Info("fixtures loaded",
			slog.String("source", "directory"),
			slog.String("dir", cfg.FixturesDir),
			slog.Int("personas", store.Len()),
		)
		return store, nil

	default:
		store, err := fixture.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded fixtures: %w", err)
		}
		slog.Info("fixtures loaded",
			slog.String("source", "embedded"),
			slog.Int("personas", store.Len()),
		)
		return store, nil
	}
}

// runMigrate はフィクスチャ用データベースのマイグレーションを実行する。
func runMigrate(cfg *config.Config) error {
	if cfg.FixturesDatabaseURL == "" {
		return fmt.Errorf("FIXTURES_DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.FixturesDatabaseURL)),
	)

	if err := database.RunMigrations(cfg.FixturesDatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runImport はJSONフィクスチャをデータベースへ投入する。
// 引数でディレクトリを指定しない場合は埋め込みフィクスチャを使う。
// 投入前にマイグレーションを適用し、既存のペルソナは全て置き換える。
func runImport(cfg *config.Config, args []string) error {
	if cfg.FixturesDatabaseURL == "" {
		return fmt.Errorf("FIXTURES_DATABASE_URL is required for import")
	}

	source := "embedded"
	var fsys fs.FS = fixture.EmbeddedFS()
	if len(args) > 0 && args[0] != "" {
		source = args[0]
		fsys = os.DirFS(args[0])
	}

	personas, err := fixture.ReadFS(fsys)
	if err != nil {
		return fmt.Errorf("failed to read fixtures from %s: %w", source, err)
	}

	if err := database.RunMigrations(cfg.FixturesDatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.FixturesDatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.NewPostgresPersonaRepo(db).ReplaceAll(ctx, personas); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	slog.Info("fixtures imported",
		slog.String("source", source),
		slog.Int("personas", len(personas)),
	)
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

// healthcheckPort はConfigを読み込まずに待ち受けポートを決定する。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "3000"
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
