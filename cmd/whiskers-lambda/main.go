package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/chris/whiskers/internal/bootstrap"
	"github.com/chris/whiskers/internal/invoke"
	"github.com/chris/whiskers/pkg/logger"
)

func main() {
	handler := bootstrap.NewHandler(logger.New())
	lambda.Start(func(ctx context.Context, raw json.RawMessage) (invoke.Response, error) {
		return handler.Handle(ctx, raw), nil
	})
}
