package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andrewpaige1/nodebook-study/config"
)

// Claims is the token payload accepted by the API middleware.
type Claims struct {
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// CreateToken signs an HS256 token for subject with the configured issuer
// and audience. It is used by local tooling and tests; production tokens
// come from the identity provider.
func CreateToken(cfg config.AuthConfig, subject, nickname string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("auth: JWT secret key not set")
	}
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString([]byte(cfg.Secret))
}

// VerifyToken parses a token minted by CreateToken.
func VerifyToken(cfg config.AuthConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
