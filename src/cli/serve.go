package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-memo-app/src/config"
	"ai-memo-app/src/database"
	"ai-memo-app/src/domain"
	"ai-memo-app/src/infrastructure/ai"
	"ai-memo-app/src/infrastructure/repository"
	"ai-memo-app/src/infrastructure/supabase"
	"ai-memo-app/src/interface/handler"
	"ai-memo-app/src/logger"
	"ai-memo-app/src/metrics"
	"ai-memo-app/src/notify"
	"ai-memo-app/src/routes"
	"ai-memo-app/src/service"
	"ai-memo-app/src/storage"
	"ai-memo-app/src/usecase"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the memo API server",
		Long: `Start the HTTP API server.

The record store is chosen by RECORD_STORE (postgres or supabase). AI features
are disabled when the provider cannot be configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Directory); err != nil {
				return fmt.Errorf("ロガーの初期化に失敗: %w", err)
			}
			defer logger.CloseLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger.Log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	log.Info("アプリケーションを開始しています")

	repo, health, closeStore, err := openRecordStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := ai.New(ai.Config{
		Provider:           cfg.AI.Provider,
		APIKey:             cfg.AI.APIKey,
		Model:              cfg.AI.Model,
		BreakerTimeout:     cfg.AI.BreakerTimeout,
		BreakerMinRequests: uint32(cfg.AI.BreakerMinReqs),
	}, log)
	if err != nil {
		log.WithError(err).Warn("AI機能を無効にして起動します")
	} else if !provider.Available() {
		log.WithField("provider", provider.Name()).Warn("APIキーが未設定のためAI機能は利用できません")
	}

	collector := metrics.NewCollector()
	hub := notify.NewHub(log)
	go hub.Run(ctx)

	var jwtService service.JWTService
	if cfg.AuthEnabled() {
		jwtService = service.NewJWTService(cfg)
		log.Info("APIの認証が有効です")
	}

	router := routes.NewRouter(routes.Deps{
		MemoHandler:    handler.NewMemoHandler(usecase.NewMemoUsecase(repo, provider, log), hub, collector, log),
		Hub:            hub,
		Metrics:        collector,
		JWT:            jwtService,
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	if cfg.Log.UploadEnabled {
		uploader, err := storage.NewUploader(s3Config(cfg), log)
		if err != nil {
			log.WithError(err).Error("S3アップローダーの初期化に失敗")
		} else {
			uploader.StartPeriodicUpload(ctx, cfg.Log.Directory, cfg.Log.UploadInterval, cfg.Log.UploadMaxAge, logger.GetCurrentLogFile)
			defer func() {
				log.Info("最後のログアップロードを実行中...")
				uploadCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if _, err := uploader.UploadOldLogs(uploadCtx, cfg.Log.Directory, 0, logger.GetCurrentLogFile()); err != nil {
					log.WithError(err).Error("最後のログアップロードに失敗")
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.WithField("port", cfg.Server.Port).Info("サーバーを開始します")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	log.Info("シャットダウンシグナルを受信しました")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// openRecordStore connects the configured record store and returns it with a
// health check and a close function.
func openRecordStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (domain.MemoRepository, routes.HealthChecker, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSupabase:
		if !cfg.SupabaseEnabled() {
			return nil, nil, nil, errors.New("SUPABASE_URL と SUPABASE_SERVICE_ROLE_KEY を設定してください")
		}
		client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := supabase.NewMemoRepository(client, log)
		health := func(ctx context.Context) error {
			_, err := repo.Count(ctx)
			return err
		}
		log.WithField("url", cfg.Supabase.URL).Info("Supabaseをレコードストアとして使用します")
		return repo, health, func() {}, nil

	case config.StoreDriverPostgres, "":
		db, err := database.NewDB(&database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("データベース接続のクローズに失敗")
			}
		}
		return repository.NewMemoRepository(db, log), db.PingContext, closeDB, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown RECORD_STORE %q; valid stores: postgres, supabase", cfg.Store.Driver)
	}
}

func s3Config(cfg *config.Config) *storage.S3Config {
	return &storage.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		UseSSL:          cfg.S3.UseSSL,
	}
}
