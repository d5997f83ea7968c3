package main

import (
	stdlog "log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/raywall/mail-subscription-renewal/internal/config"
	"github.com/raywall/mail-subscription-renewal/internal/handler"
	"github.com/raywall/mail-subscription-renewal/internal/logger"
)

func main() {
	// .env is only present on local runs; inside Lambda the environment comes from the function config
	if err := godotenv.Load(); err != nil {
		stdlog.Println("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	defer log.Sync() //nolint:errcheck

	lambda.Start(handler.New(log).Handle)
}
