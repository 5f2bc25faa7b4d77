package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/handlers"
	"github.com/sevasetu/sevasetu/internal/identity"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/middleware"
	"github.com/sevasetu/sevasetu/internal/repository"
	"github.com/sevasetu/sevasetu/internal/service"
	"github.com/sevasetu/sevasetu/internal/sms"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	catalog, err := config.LoadStatusCatalog(cfg.StatusLabel.CatalogPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load status label catalog")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	otpStore := repository.NewRedisOTPStore(redisClient, logger)
	applicationRepo := repository.NewApplicationRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	// Initialize services
	tokenService, err := service.NewTokenService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	var sender sms.Sender
	if cfg.SMS.GatewayURL != "" {
		sender = sms.NewGatewaySender(cfg.SMS.GatewayURL, cfg.SMS.APIKey, logger)
	} else {
		logger.Warn("SMS_GATEWAY_URL not set, using dev sender")
		sender = sms.NewDevSender(logger)
	}

	otpService := service.NewOTPService(otpStore, sender, tokenService, &cfg.OTP, m, logger)
	duplicateGuard := service.NewDuplicateGuard(applicationRepo, logger)
	lifecycleService := service.NewLifecycleService(applicationRepo, duplicateGuard, catalog, m, logger)
	confirmationService := service.NewConfirmationService(applicationRepo, catalog, m, logger)

	fingerprinter := identity.NewFingerprinter(cfg.Identity.FingerprintKey)

	otpHandlers := handlers.NewOTPHandlers(otpService, logger)
	applicationHandlers := handlers.NewApplicationHandlers(lifecycleService, fingerprinter, catalog, logger)
	confirmationHandlers := handlers.NewConfirmationHandlers(confirmationService, catalog, cfg.Confirmation.SharedSecret, logger)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, logger)
	router := setupRouter(otpHandlers, applicationHandlers, confirmationHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func setupRouter(
	otpHandlers *handlers.OTPHandlers,
	applicationHandlers *handlers.ApplicationHandlers,
	confirmationHandlers *handlers.ConfirmationHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	otp := api.PathPrefix("/otp").Subrouter()
	otp.HandleFunc("/send", otpHandlers.SendOTP).Methods("POST", "OPTIONS")
	otp.HandleFunc("/verify", otpHandlers.VerifyOTP).Methods("POST", "OPTIONS")

	citizen := api.PathPrefix("/applications").Subrouter()
	citizen.Use(authMiddleware.RequireCitizen)
	citizen.HandleFunc("", applicationHandlers.Submit).Methods("POST", "OPTIONS")
	citizen.HandleFunc("/{reference}", applicationHandlers.Query).Methods("GET", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware.RequireOfficer)
	admin.HandleFunc("/applications/{reference}/transition", applicationHandlers.Transition).Methods("POST", "OPTIONS")

	api.HandleFunc("/confirmations", confirmationHandlers.Apply).Methods("POST", "OPTIONS")

	return router
}
