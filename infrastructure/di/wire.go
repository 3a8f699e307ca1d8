//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"opino-backend/infrastructure/config"
)

// InitializeContainer assembles the application from a loaded configuration.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(
		provideLogger,
		provideAWSConfig,
		provideDynamoDBClient,
		provideEventBridgeClient,
		provideCloudWatchClient,
		provideSiteStore,
		provideCommentStore,
		provideKeyValueStore,
		provideCounterStore,
		provideCache,
		provideLimiter,
		provideMetrics,
		provideCaptchaVerifier,
		provideEventPublisher,
		provideJWTValidator,
		provideWidgetService,
		provideDashboardService,
		provideRouter,
		wire.Struct(new(Container), "Config", "Logger", "Router"),
	)
	return nil, nil
}
