package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "akshayapatra/api/swagger" // swagger docs
	"akshayapatra/internal/auth"
	"akshayapatra/internal/config"
	"akshayapatra/internal/database"
	"akshayapatra/internal/handler"
	"akshayapatra/internal/metrics"
	"akshayapatra/internal/middleware"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"
	"akshayapatra/internal/service"
	"akshayapatra/internal/validation"
	"akshayapatra/internal/websocket"
	"akshayapatra/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Akshayapatra API
// @version         1.0
// @description     Savings and rewards platform with a role-based admin console.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	appLog, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, appLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database, appLog)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	metrics.Init()
	if err := validation.RegisterWithGin(); err != nil {
		return err
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(appLog.Named("ws"))
	go wsHub.Run(ctx)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	staffRepo := repository.NewStaffRepository(db)
	userRepo := repository.NewUserProfileRepository(db)
	cardRepo := repository.NewCardRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)
	winnerRepo := repository.NewWinnerRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	procs := repository.NewStoredProcedures(db)

	// Access control
	cache := rbac.NewCache(cfg.RBAC.CacheTTL)
	rbacOpts := []rbac.Option{
		rbac.WithLookupTimeout(cfg.RBAC.LookupTimeout),
		rbac.WithLogger(appLog.Named("rbac")),
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		invalidator := rbac.NewRedisInvalidator(client, cfg.Redis.Channel, cache, appLog.Named("rbac"))
		if err := invalidator.Start(ctx); err != nil {
			appLog.Warn("rbac invalidation channel unavailable, running single-instance", zap.Error(err))
		} else {
			rbacOpts = append(rbacOpts, rbac.WithNotifier(invalidator))
			appLog.Info("rbac invalidation channel subscribed", zap.String("channel", cfg.Redis.Channel))
		}
	}
	access := rbac.NewService(staffRepo, cache, rbacOpts...)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	authn := middleware.NewAuthenticator(tokens, access, service.NewProfileGuard(staffRepo, userRepo), appLog.Named("auth"))

	// Services
	auditService := service.NewAuditService(auditRepo)
	staffService := service.NewStaffService(staffRepo, procs, access, auditService, txManager, wsHub, appLog)
	authService := service.NewAuthService(staffRepo, userRepo, procs, txManager, staffService, access, tokens)
	cardService := service.NewCardService(cardRepo, userRepo, procs, auditService, txManager)
	schemeService := service.NewSchemeService(schemeRepo, winnerRepo, procs, auditService, txManager, wsHub)
	winnerService := service.NewWinnerService(winnerRepo, schemeRepo, userRepo, auditService, txManager)
	userService := service.NewUserProfileService(userRepo, procs, auditService, txManager, wsHub, appLog)
	referralService := service.NewReferralService(referralRepo, userRepo, procs)
	overviewService := service.NewOverviewService(userRepo, staffRepo, schemeRepo, cardRepo, winnerRepo, referralRepo)
	rbacAdminService := service.NewRBACAdminService(access, auditService, wsHub, appLog)

	// Set up Gin Router
	router := gin.New()
	router.Use(
		middleware.Recovery(appLog),
		middleware.RequestLogger(appLog.Named("http")),
		middleware.Metrics(),
		middleware.SecureHeaders(cfg.IsProduction(), appLog),
	)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlerLog := appLog.Named("handler")
	root := router.Group("")
	handler.NewSystemHandler(sqlDB, wsHub, tokens, access, handlerLog).RegisterRoutes(root)
	handler.NewAuthHandler(authService, authn, tokens.TTL(), cfg.JWT.SecureCookies, handlerLog).RegisterRoutes(root)
	handler.NewStaffHandler(staffService, authn, handlerLog).RegisterRoutes(root)
	handler.NewCardHandler(cardService, authn, handlerLog).RegisterRoutes(root)
	handler.NewSchemeHandler(schemeService, authn, handlerLog).RegisterRoutes(root)
	handler.NewWinnerHandler(winnerService, authn, handlerLog).RegisterRoutes(root)
	handler.NewUserProfileHandler(userService, authn, handlerLog).RegisterRoutes(root)
	handler.NewReferralHandler(referralService, authn, handlerLog).RegisterRoutes(root)
	handler.NewOverviewHandler(overviewService, authn, handlerLog).RegisterRoutes(root)
	handler.NewAuditHandler(auditService, authn, handlerLog).RegisterRoutes(root)
	handler.NewRBACHandler(rbacAdminService, authn, handlerLog).RegisterRoutes(root)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
