package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"onboarding-proxy/handler"
	"onboarding-proxy/internal/config"
	"onboarding-proxy/internal/integrations/openai"
	"onboarding-proxy/internal/integrations/paramstore"
	"onboarding-proxy/internal/logger"
	"onboarding-proxy/internal/repository"
	"onboarding-proxy/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("onboarding proxy stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	keys, recorder, err := buildAWSDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// ---- Clients ----
	client, err := openai.NewClient(keys, openai.WithBaseURL(cfg.OpenAIBaseURL))
	if err != nil {
		return fmt.Errorf("create OpenAI client: %w", err)
	}

	// ---- Handler ----
	svc, err := usecase.NewOnboardingService(client, recorder, log)
	if err != nil {
		return fmt.Errorf("create onboarding service: %w", err)
	}
	h, err := handler.NewHandler(svc, log, handler.Options{AllowOrigins: cfg.AllowOrigins})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	if cfg.Lambda {
		log.Info("starting lambda runtime")
		lambda.Start(h.Handle)
		return nil
	}
	return serve(h, cfg.Port, log)
}

// buildAWSDependencies resolves the API key source and the optional
// interaction recorder. AWS config is only loaded when one of them needs it.
func buildAWSDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (openai.KeySource, usecase.InteractionRecorder, error) {
	var (
		keys     openai.KeySource = openai.StaticKey(cfg.OpenAIAPIKey)
		recorder usecase.InteractionRecorder
	)
	if !cfg.NeedsAWS() {
		if cfg.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY is not set; provider calls will be rejected")
		}
		return keys, nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.UseParamStoreKey() {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, nil, fmt.Errorf("create SSM client: %w", err)
		}
		psKey, err := openai.NewParamStoreKey(ssmClient, cfg.ParamPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("create parameter store key source: %w", err)
		}
		keys = psKey
		log.Info("reading OpenAI key from parameter store", zap.String("param_prefix", cfg.ParamPrefix))
	}

	if cfg.InteractionTable != "" {
		repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.InteractionTable, cfg.InteractionTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("create interaction repository: %w", err)
		}
		recorder = repo
		log.Info("recording interactions", zap.String("table", cfg.InteractionTable))
	}
	return keys, recorder, nil
}

func serve(h *handler.Handler, port string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("WFS AI Proxy listening", zap.String("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
