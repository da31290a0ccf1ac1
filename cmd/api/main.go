package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/admin"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/auth"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/call"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/profile"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/subscription"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/handler/http/tutor"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/repository/postgres"
	redisrepo "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/repository/redis"
	adminservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/admin"
	authservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/auth"
	callservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/call"
	subservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/subscription"
	tutorservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/tutor"
	userservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/user"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/config"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/database"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/email"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/jwt"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/logger"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/socialauth"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log, cfg.Server.ServiceName); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Infrastructure
	pg, err := database.NewPostgres(ctx, &cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pg.Pool.Close()

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Client.Close()

	objectStorage, err := storage.NewMinioStorage(ctx, &cfg.MinIO)
	if err != nil {
		log.Fatal("failed to init object storage", zap.Error(err))
	}

	m := metrics.New(cfg.Server.ServiceName)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	// Repositories
	userRepo := postgres.NewUserRepository(pg.Pool)
	callRepo := postgres.NewCallRepository(pg.Pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pg.Pool)
	adminRepo := postgres.NewAdminRepository(pg.Pool)
	availabilityRepo := redisrepo.NewAvailabilityRepository(rdb.Client)

	// Services
	emailService := email.NewService(email.ConsoleSender{Log: log}, "no-reply@tutorconnect.app")
	socialVerifier := socialauth.NewHTTPVerifier(cfg.OAuth.GoogleClientID)
	authSvc := authservice.NewService(userRepo, emailService, socialVerifier, jwtManager, cfg.Server.BaseURL, log)
	callSvc := callservice.NewService(callRepo, userRepo, subscriptionRepo, availabilityRepo, m, cfg.Call.HeartbeatTimeout, log)
	tutorSvc := tutorservice.NewService(userRepo, availabilityRepo, log)
	subscriptionSvc := subservice.NewService(subscriptionRepo, userRepo, &subservice.DevCheckoutProvider{BaseURL: cfg.Server.BaseURL}, log)
	userSvc := userservice.NewService(userRepo, subscriptionRepo, objectStorage, log)
	adminSvc := adminservice.NewService(adminRepo, userRepo, callRepo, availabilityRepo, m, log)

	// Background workers
	reaper := callservice.NewReaper(callSvc, cfg.Call.ReaperInterval, m, log)
	go reaper.Run(ctx)
	expirer := subservice.NewExpirer(subscriptionSvc, cfg.Payment.ExpireInterval, log)
	go expirer.Run(ctx)

	router := buildRouter(cfg, log, m, jwtManager, authSvc, callSvc, tutorSvc, subscriptionSvc, userSvc, adminSvc, userRepo)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func buildRouter(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	jwtManager *jwt.Manager,
	authSvc *authservice.Service,
	callSvc *callservice.Service,
	tutorSvc *tutorservice.Service,
	subscriptionSvc *subservice.Service,
	userSvc *userservice.Service,
	adminSvc *adminservice.Service,
	userRepo *postgres.UserRepository,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.Prometheus(m),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Server.CORSOrigins),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.Server.ServiceName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	authHandler := auth.NewHandler(authSvc)
	callHandler := call.NewHandler(callSvc, userRepo, cfg.Call.JitsiDomain)
	tutorHandler := tutor.NewHandler(tutorSvc)
	subscriptionHandler := subscription.NewHandler(subscriptionSvc, cfg.Payment.WebhookSecret)
	profileHandler := profile.NewHandler(userSvc)
	adminHandler := admin.NewHandler(adminSvc)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/social", authHandler.SocialLogin)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/verify-email", authHandler.VerifyEmail)

			authed := authGroup.Group("", middleware.Auth(jwtManager))
			{
				authed.POST("/logout", authHandler.Logout)
				authed.GET("/me", authHandler.Me)
				authed.POST("/resend-verification", authHandler.ResendVerification)
			}
		}

		tutors := api.Group("/tutors", middleware.Auth(jwtManager))
		{
			tutors.GET("", tutorHandler.List)
			tutors.GET("/:id", tutorHandler.Get)
			tutors.POST("/availability",
				middleware.RequireVerified(),
				middleware.RequireRole(domain.RoleTeacher),
				tutorHandler.ToggleAvailability,
			)
		}

		calls := api.Group("/calls", middleware.Auth(jwtManager), middleware.RequireVerified())
		{
			calls.POST("/start", middleware.RequireRole(domain.RoleStudent), callHandler.Start)
			calls.POST("/:id/end", callHandler.End)
			calls.POST("/:id/heartbeat", callHandler.Heartbeat)
			calls.GET("/active", callHandler.Active)
			calls.GET("/history", callHandler.History)
			calls.GET("/:id/video", callHandler.Video)
		}

		subscriptions := api.Group("/subscriptions", middleware.Auth(jwtManager))
		{
			subscriptions.GET("/plans", subscriptionHandler.Plans)
			subscriptions.POST("/checkout",
				middleware.RequireVerified(),
				middleware.RequireRole(domain.RoleStudent),
				subscriptionHandler.Checkout,
			)
			subscriptions.GET("/current", subscriptionHandler.Current)
			subscriptions.GET("/success", subscriptionHandler.Success)
			subscriptions.GET("/history", subscriptionHandler.History)
		}

		// Webhooks authenticate with a shared secret, not a user token
		api.POST("/webhooks/payment", subscriptionHandler.Webhook)

		profileGroup := api.Group("/profile", middleware.Auth(jwtManager))
		{
			profileGroup.GET("", profileHandler.Get)
			profileGroup.PATCH("", profileHandler.Update)
			profileGroup.GET("/download", profileHandler.Download)
			profileGroup.POST("/photo", profileHandler.UploadPhoto)
			profileGroup.DELETE("/photo", profileHandler.RemovePhoto)
		}

		adminGroup := api.Group("/admin", middleware.Auth(jwtManager), middleware.RequireRole(domain.RoleAdmin))
		{
			adminGroup.GET("/stats", adminHandler.Stats)
			adminGroup.GET("/activity", adminHandler.RecentActivity)
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.GET("/users/:id", adminHandler.GetUser)
			adminGroup.PATCH("/users/:id", adminHandler.UpdateUser)
			adminGroup.POST("/users/:id/ban", adminHandler.BanUser)
			adminGroup.POST("/users/:id/unban", adminHandler.UnbanUser)
		}
	}

	return router
}
