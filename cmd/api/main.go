package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-wallet-api/internal/config"
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-wallet-api/internal/infrastructure/jwt"
	s3infra "github.com/go-wallet-api/internal/infrastructure/s3"
	"github.com/go-wallet-api/internal/infrastructure/smtp"
	"github.com/go-wallet-api/internal/infrastructure/sns"
	"github.com/go-wallet-api/internal/otp"
	transporthttp "github.com/go-wallet-api/internal/transport/http"
	"github.com/go-wallet-api/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider not available: %v", err)
	}

	// S3 store for KYC documents.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender.
	smsSender, err := sns.NewSender(cfg)
	if err != nil {
		log.Fatalf("SNS sender not available: %v", err)
	}

	// In-memory code stores (one per channel), the dedup gate and the
	// per-IP limiter. These own background sweeps and are stopped during
	// shutdown. 5 requests/second, burst of 10 on sensitive public routes.
	smsOTP := otp.NewStore(cfg.OTPTTL, cfg.OTPMaxAttempts, cfg.OTPSweepInterval)
	emailOTP := otp.NewStore(cfg.OTPTTL, cfg.OTPMaxAttempts, cfg.OTPSweepInterval)
	gate := dedup.NewGate(cfg.DedupTTL, cfg.DedupSweepInterval)
	sensitiveRL := middleware.NewRateLimiter(rate.Limit(5), 10)

	deps := &transporthttp.Deps{
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		SMSOTP:      smsOTP,
		EmailOTP:    emailOTP,
		DedupGate:   gate,
		RateLimit:   sensitiveRL,
		S3Store:     s3Store,
		Mailer:      mailer,
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	smsOTP.Stop()
	emailOTP.Stop()
	gate.Stop()
	sensitiveRL.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
