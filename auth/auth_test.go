package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/nodebook-study/config"
)

var testAuth = config.AuthConfig{
	Secret:   "test-secret-key-0123456789",
	Issuer:   "nodebook",
	Audience: "nodebook-api",
}

func TestCreateAndVerifyToken(t *testing.T) {
	tok, err := CreateToken(testAuth, "auth0|abc", "sam", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(testAuth, tok)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", claims.Subject)
	assert.Equal(t, "sam", claims.Nickname)
}

func TestVerifyTokenRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuthConfig
		ttl  time.Duration
	}{
		{"wrong secret", config.AuthConfig{Secret: "other-secret", Issuer: testAuth.Issuer, Audience: testAuth.Audience}, time.Hour},
		{"wrong audience", config.AuthConfig{Secret: testAuth.Secret, Issuer: testAuth.Issuer, Audience: "elsewhere"}, time.Hour},
		{"expired", testAuth, -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := CreateToken(testAuth, "auth0|abc", "", tt.ttl)
			require.NoError(t, err)
			_, err = VerifyToken(tt.cfg, tok)
			assert.Error(t, err)
		})
	}
}

func TestCreateTokenRequiresSecretAndSubject(t *testing.T) {
	_, err := CreateToken(config.AuthConfig{}, "auth0|abc", "", time.Hour)
	assert.Error(t, err)
	_, err = CreateToken(testAuth, "", "", time.Hour)
	assert.Error(t, err)
}
