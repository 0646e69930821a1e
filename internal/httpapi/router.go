package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"learning_assist/internal/config"
	"learning_assist/internal/gateway"
	"learning_assist/internal/logging"
	"learning_assist/internal/middleware"
	"learning_assist/internal/models"
	"learning_assist/internal/providers"
	"learning_assist/internal/storage"
	"learning_assist/internal/utils"
)

// UserStore is the account storage the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, when time.Time) error
}

// RecordStore is the academic record storage the record handlers need.
type RecordStore interface {
	Create(ctx context.Context, rec *models.AcademicRecord) error
	Get(ctx context.Context, recordID, topicID string) (*models.AcademicRecord, error)
	Update(ctx context.Context, recordID, topicID string, updates map[string]any) (*models.AcademicRecord, error)
	Delete(ctx context.Context, recordID, topicID string) error
	ListByTeacher(ctx context.Context, teacherID string) ([]*models.AcademicRecord, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*models.AcademicRecord, error)
	ListByTopic(ctx context.Context, topicID string) ([]*models.AcademicRecord, error)
	ListByClass(ctx context.Context, schoolID, academicYear, grade, section string) ([]*models.AcademicRecord, error)
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Gateway     *gateway.Gateway
	Users       UserStore
	Records     RecordStore
	Logs        logging.Sink
	TokenSecret []byte

	db     *storage.DB
	logger *utils.Logger
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := storage.NewRedisClient(storage.RedisConfig{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Only providers with a configured key are routable; the gateway turns
	// an empty adapter set into a configuration error per request.
	adapters := map[string]providers.Provider{}
	if cfg.AI.GeminiAPIKey != "" {
		adapters["gemini"] = providers.NewGeminiProvider(cfg.AI.GeminiAPIKey, cfg.AI.GeminiBaseURL, cfg.AI.RequestTimeout)
	}
	if cfg.AI.ClaudeAPIKey != "" {
		adapters["claude"] = providers.NewClaudeProvider(cfg.AI.ClaudeAPIKey, cfg.AI.ClaudeBaseURL, cfg.AI.RequestTimeout)
	}

	gw := gateway.New(gateway.Config{
		DefaultModel:      cfg.AI.DefaultModel,
		SupportedModels:   gateway.DefaultSupportedModels(),
		DailyRequestLimit: cfg.AI.DailyRequestLimit,
	}, adapters, storage.NewRedisUsageStore(redisClient))

	var sink logging.Sink = logging.NewNoopSink()
	if cfg.LogSink.Enabled && cfg.LogSink.S3Bucket != "" {
		writer, err := logging.NewS3Writer(context.Background(),
			cfg.LogSink.S3Bucket, cfg.LogSink.S3Region, cfg.LogSink.S3Prefix, cfg.LogSink.PodName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 log writer: %w", err)
		}
		sink = logging.NewBufferedSink(writer, cfg.LogSink.BufferSize, cfg.LogSink.FlushSize, cfg.LogSink.FlushInterval)
	}

	deps := &Dependencies{
		Gateway:     gw,
		Users:       storage.NewUserRepository(db),
		Records:     storage.NewRecordRepository(db),
		Logs:        sink,
		TokenSecret: cfg.TokenSecret,
		db:          db,
		logger:      utils.NewLogger("httpapi"),
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return mux, deps, nil
}

// Close releases the resources held by the HTTP layer; call it from the
// graceful shutdown handler.
func (deps *Dependencies) Close() {
	deps.Logs.Close()
	if deps.db != nil {
		if err := deps.db.Close(); err != nil {
			deps.logger.Warn("failed to close database", "error", err)
		}
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// AI proxy: /ai/{endpoint}, endpoint validated by the gateway.
	mux.Handle("/ai/", middleware.CORS(http.HandlerFunc(deps.handleProxy)))

	// Authentication endpoints.
	mux.Handle("/auth/register", middleware.CORS(http.HandlerFunc(deps.handleRegister)))
	mux.Handle("/auth/login", middleware.CORS(http.HandlerFunc(deps.handleLogin)))
	mux.Handle("/auth/verify", middleware.CORS(http.HandlerFunc(deps.handleVerify)))

	// Academic record CRUD and query endpoints.
	mux.Handle("/academic-records", middleware.CORS(http.HandlerFunc(deps.handleRecords)))
	mux.Handle("/academic-records/", middleware.CORS(http.HandlerFunc(deps.handleRecordByID)))
	mux.Handle("/records/topic/", middleware.CORS(http.HandlerFunc(deps.handleRecordsByTopic)))

	// Health check endpoint - public
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
