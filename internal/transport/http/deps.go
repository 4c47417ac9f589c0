package http

import (
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-wallet-api/internal/infrastructure/jwt"
	s3infra "github.com/go-wallet-api/internal/infrastructure/s3"
	"github.com/go-wallet-api/internal/infrastructure/smtp"
	"github.com/go-wallet-api/internal/infrastructure/sns"
	"github.com/go-wallet-api/internal/otp"
	"github.com/go-wallet-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router. The OTP
// stores, the dedup gate and the rate limiter are process-wide singletons
// with background sweeps: main owns them and stops them during shutdown.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	SMSOTP      *otp.Store
	EmailOTP    *otp.Store
	DedupGate   *dedup.Gate
	RateLimit   *middleware.RateLimiter
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
