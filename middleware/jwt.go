package middleware

import (
	"context"
	"fmt"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/config"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Nickname string `json:"nickname"`
}

// Validate does nothing; the nickname is optional.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// The token is read from the Authorization header or, for EventSource
// clients that cannot set headers, from the auth cookie.
func EnsureValidToken(cfg config.AuthConfig, log *zap.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(cfg.ClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Debug("encountered error while validating JWT", zap.Error(err), zap.String("path", r.URL.Path))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Failed to validate JWT."}`))
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "auth_token"
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.CookieTokenExtractor(cookieName),
		)),
	)

	return func(next http.Handler) http.Handler {
		return mw.CheckJWT(next)
	}, nil
}
