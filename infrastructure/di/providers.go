// Package di wires the application together. Providers branch on
// configuration so the same graph serves local development (in-memory
// stores, no AWS clients) and deployment (DynamoDB, EventBridge,
// CloudWatch).
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/application/services"
	"opino-backend/infrastructure/cache"
	"opino-backend/infrastructure/captcha"
	"opino-backend/infrastructure/config"
	"opino-backend/infrastructure/messaging/eventbridge"
	dynamostore "opino-backend/infrastructure/persistence/dynamodb"
	"opino-backend/infrastructure/persistence/memory"
	"opino-backend/infrastructure/ratelimit"
	"opino-backend/interfaces/http/rest"
	"opino-backend/interfaces/http/rest/handlers"
	"opino-backend/interfaces/http/rest/middleware"
	"opino-backend/pkg/auth"
	"opino-backend/pkg/observability"
)

// Container holds the assembled application.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Router *chi.Mux
}

// provideLogger builds the process logger for the configured environment.
func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// provideAWSConfig loads the default AWS configuration. It is only consulted
// when at least one AWS-backed component is configured.
func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func provideDynamoDBClient(cfg *config.Config, awsCfg aws.Config) *awsdynamodb.Client {
	if cfg.DynamoDBTable == "" {
		return nil
	}
	return awsdynamodb.NewFromConfig(awsCfg)
}

func provideEventBridgeClient(cfg *config.Config, awsCfg aws.Config) *awseventbridge.Client {
	if cfg.EventBusName == "" {
		return nil
	}
	return awseventbridge.NewFromConfig(awsCfg)
}

func provideCloudWatchClient(cfg *config.Config, awsCfg aws.Config) *cloudwatch.Client {
	if !cfg.IsProduction() {
		return nil
	}
	return cloudwatch.NewFromConfig(awsCfg)
}

func provideSiteStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.SiteStore {
	if client == nil {
		logger.Warn("no DynamoDB table configured, using in-memory site store")
		return memory.NewSiteStore()
	}
	return dynamostore.NewSiteRepository(client, cfg.DynamoDBTable, cfg.OwnerIndexName, logger)
}

func provideCommentStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.CommentStore {
	if client == nil {
		logger.Warn("no DynamoDB table configured, using in-memory comment store")
		return memory.NewCommentStore()
	}
	return dynamostore.NewCommentRepository(client, cfg.DynamoDBTable, cfg.OwnerIndexName, cfg.CommentIndexName, logger)
}

func provideKeyValueStore(cfg *config.Config, client *awsdynamodb.Client) cache.KeyValueStore {
	if client == nil {
		return cache.NewMemoryStore()
	}
	return dynamostore.NewKVStore(client, cfg.DynamoDBTable)
}

func provideCounterStore(cfg *config.Config, client *awsdynamodb.Client) ratelimit.CounterStore {
	if client == nil {
		return ratelimit.NewMemoryCounterStore()
	}
	return dynamostore.NewCounterStore(client, cfg.DynamoDBTable)
}

func provideCache(store cache.KeyValueStore, logger *zap.Logger) *cache.Cache {
	return cache.New(store, logger)
}

func provideLimiter(cfg *config.Config, store ratelimit.CounterStore, logger *zap.Logger) *ratelimit.Limiter {
	return ratelimit.NewLimiter(store, cfg.RateLimits, logger)
}

func provideMetrics(cfg *config.Config, client *cloudwatch.Client) *observability.Metrics {
	return observability.NewMetrics(cfg.MetricsNamespace, client)
}

func provideCaptchaVerifier(cfg *config.Config, logger *zap.Logger) ports.CaptchaVerifier {
	if cfg.TurnstileSecret == "" {
		logger.Warn("no Turnstile secret configured, captcha tokens always pass")
	}
	return captcha.NewTurnstileVerifier(cfg.TurnstileSecret, logger)
}

func provideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

func provideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		// Validate() forbids this in production; development gets a fixed
		// secret so the dashboard stays testable.
		logger.Warn("no JWT secret configured, using the development secret")
		secret = "development-secret"
	}
	return auth.NewJWTValidator(auth.JWTConfig{SecretKey: secret, Issuer: cfg.JWTIssuer})
}

func provideWidgetService(
	cfg *config.Config,
	sites ports.SiteStore,
	comments ports.CommentStore,
	cache *cache.Cache,
	verifier ports.CaptchaVerifier,
	events ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.WidgetService {
	return services.NewWidgetService(sites, comments, cache, verifier, events, metrics,
		services.WidgetOptions{
			ThreadCacheTTL:         cfg.ThreadCacheTTL,
			SiteCacheTTL:           cfg.SiteCacheTTL,
			RequireOriginForWrites: cfg.IsProduction(),
		}, logger)
}

func provideDashboardService(
	cfg *config.Config,
	sites ports.SiteStore,
	comments ports.CommentStore,
	cache *cache.Cache,
	events ports.EventPublisher,
	logger *zap.Logger,
) *services.DashboardService {
	return services.NewDashboardService(sites, comments, cache, events,
		services.DashboardOptions{CacheTTL: cfg.DashboardCacheTTL}, logger)
}

func provideRouter(
	cfg *config.Config,
	widgetSvc *services.WidgetService,
	dashboardSvc *services.DashboardService,
	validator *auth.JWTValidator,
	limiter *ratelimit.Limiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *chi.Mux {
	return rest.NewRouter(
		handlers.NewWidgetHandler(widgetSvc, logger),
		handlers.NewDashboardHandler(dashboardSvc, logger),
		middleware.NewAuthenticator(validator, logger),
		middleware.NewRateLimit(limiter, metrics, false, logger),
		middleware.NewRateLimit(limiter, metrics, true, logger),
		rest.RouterConfig{DashboardOrigins: cfg.DashboardOrigins},
		logger,
	)
}
