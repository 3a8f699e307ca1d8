// The lambda command runs the backend behind API Gateway. The container is
// built once per cold start and reused across invocations.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"opino-backend/infrastructure/config"
	"opino-backend/infrastructure/di"
)

var adapter *chiadapter.ChiLambda

func init() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	container.Logger.Info("lambda cold start", zap.String("environment", cfg.Environment))

	adapter = chiadapter.New(container.Router)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
