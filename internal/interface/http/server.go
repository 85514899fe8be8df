package httpapi

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"smart-sales-forecast/internal/application/auth"
	dsapp "smart-sales-forecast/internal/application/dataset"
	fcapp "smart-sales-forecast/internal/application/forecast"
	"smart-sales-forecast/internal/application/reports"
	"smart-sales-forecast/internal/application/target"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"
	"smart-sales-forecast/internal/infra/memory"
	authinfra "smart-sales-forecast/internal/infrastructure/auth"
	"smart-sales-forecast/internal/infrastructure/config"
	"smart-sales-forecast/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
)

const (
	errCodeBadRequest          = "BAD_REQUEST"
	errCodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized        = "AUTH_UNAUTHORIZED"
	errCodeForbidden           = "AUTH_FORBIDDEN"
	errCodeDatasetNotFound     = "DATASET_NOT_FOUND"
	errCodeForecastUnavailable = "FORECAST_UNAVAILABLE"
	errCodeForecastNotReady    = "FORECAST_NOT_READY"
	errCodeInvalidTarget       = "INVALID_TARGET"
	errCodeInternal            = "INTERNAL_ERROR"
	refreshCookieName          = "refresh_token"
)

const seedTimeout = 5 * time.Second

// DataRepository 定義資料集與預測結果的讀寫接口。
type DataRepository interface {
	SaveDataset(ctx context.Context, d datasetDomain.Dataset) error
	GetDataset(ctx context.Context, id string) (datasetDomain.Dataset, error)
	SaveForecastRun(ctx context.Context, run forecastDomain.Run) error
	LatestForecastRun(ctx context.Context, datasetID string) (forecastDomain.Run, error)
}

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine       *gin.Engine
	store        *memory.Store
	db           *sql.DB
	cfg          config.Config
	dataRepo     DataRepository
	tokenSvc     *authinfra.JWTIssuer
	loginUC      *auth.LoginUseCase
	logoutUC     *auth.LogoutUseCase
	authz        *auth.Authorizer
	parseUC      *dsapp.ParseUseCase
	preprocessUC *dsapp.PreprocessUseCase
	forecastUC   *fcapp.Engine
	regionUC     *fcapp.RegionUseCase
	targetUC     *target.AnalyzeUseCase
	reportsUC    *reports.UseCase
	tokenTTL     time.Duration
	refreshTTL   time.Duration
}

// NewServer 建立 API 伺服器，預設使用記憶體資料存儲；給定 db 時改用 Postgres。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	store := memory.NewStore()
	store.SeedUsers()

	var dataRepo DataRepository
	var userRepo auth.UserRepository

	ttl := cfg.Auth.TokenTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	refreshTTL := cfg.Auth.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 24 * time.Hour * 30
	}

	var tokenSvc *authinfra.JWTIssuer
	if db != nil {
		repo := postgres.NewRepo(db)
		authRepo := postgres.NewAuthRepo(db)
		dataRepo = repo
		userRepo = authRepo
		tokenSvc = authinfra.NewJWTIssuer(cfg.Auth.Secret, ttl, refreshTTL, authRepo, authRepo)
	} else {
		dataRepo = store
		userRepo = store
		tokenSvc = authinfra.NewJWTIssuer(cfg.Auth.Secret, ttl, refreshTTL, store, store)
	}

	forecastEngine := fcapp.NewEngine()

	s := &Server{
		store:        store,
		db:           db,
		cfg:          cfg,
		dataRepo:     dataRepo,
		tokenSvc:     tokenSvc,
		loginUC:      auth.NewLoginUseCase(userRepo, authinfra.BcryptHasher{}, tokenSvc),
		logoutUC:     auth.NewLogoutUseCase(tokenSvc),
		authz:        auth.NewAuthorizer(userRepo),
		parseUC:      dsapp.NewParseUseCase(),
		preprocessUC: dsapp.NewPreprocessUseCase(),
		forecastUC:   forecastEngine,
		regionUC:     fcapp.NewRegionUseCase(forecastEngine),
		targetUC:     target.NewAnalyzeUseCase(),
		reportsUC:    reports.NewUseCase(),
		tokenTTL:     ttl,
		refreshTTL:   refreshTTL,
	}

	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()
		if err := seedAuth(ctx, userRepo); err != nil {
			log.Printf("warning: seed auth failed: %v", err)
		}
	}

	s.engine = s.buildRouter()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.ginLogger(), gin.Recovery(), corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/health", s.handleHealth)

		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/refresh", s.handleRefresh)
		api.POST("/auth/logout", s.handleLogout)

		api.POST("/datasets", s.requireAuth(auth.PermDatasetUpload), s.handleUploadDataset)
		api.GET("/datasets/:id/columns", s.requireAuth(auth.PermReportsView), s.handleDatasetColumns)
		api.POST("/datasets/:id/forecast", s.requireAuth(auth.PermForecastRun), s.handleForecastRun)
		api.GET("/datasets/:id/forecast/export", s.requireAuth(auth.PermReportsView), s.handleForecastExport)
		api.POST("/datasets/:id/target", s.requireAuth(auth.PermReportsView), s.handleTargetAnalysis)
		api.POST("/datasets/:id/regions", s.requireAuth(auth.PermReportsView), s.handleRegionSummary)
	}

	// 前端操作介面
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir("web"))))
	return r
}
