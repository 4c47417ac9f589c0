package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-wallet-api/internal/application/account"
	"github.com/go-wallet-api/internal/application/kyc"
	"github.com/go-wallet-api/internal/application/verification"
	"github.com/go-wallet-api/internal/config"
	"github.com/go-wallet-api/internal/transport/http/handler"
	appmiddleware "github.com/go-wallet-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.AccountRepo)
	sensitiveRL := deps.RateLimit

	accountSvc := account.NewService(deps.AccountRepo, deps.JWTProvider)
	verificationSvc := verification.NewService(
		deps.AccountRepo, deps.SMSOTP, deps.EmailOTP, deps.SMSSender, deps.Mailer,
		verification.Config{
			SendCooldown:     cfg.SendCooldown,
			EmailMaxAttempts: cfg.EmailMaxAttempts,
			DeliveryTimeout:  cfg.DeliveryTimeout,
			DeliveryRetries:  cfg.DeliveryRetries,
		})
	kycSvc := kyc.NewService(deps.AccountRepo, deps.S3Store)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc, deps.DedupGate)
	verificationH := handler.NewVerificationHandler(verificationSvc, deps.DedupGate)
	emailChangeH := handler.NewEmailChangeHandler(verificationSvc, deps.DedupGate)
	kycH := handler.NewKYCHandler(kycSvc, deps.DedupGate)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/accounts/exists/{phone}", accountH.Exists)
		r.With(sensitiveRL.Limit).Post("/accounts/send-verification", verificationH.SendSMS)
		r.With(sensitiveRL.Limit).Post("/accounts/verify-code", verificationH.VerifyCode)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Create)
		r.With(sensitiveRL.Limit).Post("/accounts/login", accountH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/profile", accountH.Profile)
			r.Post("/accounts/email", verificationH.AddEmail)
			r.Post("/accounts/send-email-verification", verificationH.SendEmail)
			r.Post("/accounts/verify-email", verificationH.VerifyEmail)

			r.Post("/accounts/email-change/request", emailChangeH.Request)
			r.Post("/accounts/email-change/verify-sms", emailChangeH.VerifySMS)
			r.Post("/accounts/email-change/verify-email", emailChangeH.VerifyEmail)

			r.Get("/kyc/status", kycH.Status)

			// Document upload is gated on full verification.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireFullyVerified)
				r.Post("/kyc/document", kycH.SubmitDocument)
			})
		})
	})

	return r
}
