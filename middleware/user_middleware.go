package middleware

import (
	"context"
	"errors"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/utils"
)

type contextKey string

const userKey contextKey = "user"

// UserSync upserts the token's subject into the users table.
type UserSync struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// Wrap ensures the Auth0 user exists in the DB and attaches it to context.
func (s *UserSync) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth0ID, ok := utils.GetAuth0ID(r)
		if !ok || auth0ID == "" {
			http.Error(w, "No Auth0 subject found", http.StatusUnauthorized)
			return
		}

		nickname := ""
		if claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims); ok {
			if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil {
				nickname = custom.Nickname
			}
		}

		user, err := s.sync(r.Context(), auth0ID, nickname)
		if err != nil {
			s.Log.Error("failed to sync user", zap.String("auth0_id", auth0ID), zap.Error(err))
			http.Error(w, "Failed to load user", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (s *UserSync) sync(ctx context.Context, auth0ID, nickname string) (*models.User, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	err := db.Where("auth0_id = ?", auth0ID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Auth0ID: auth0ID, Nickname: nickname}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		s.Log.Info("created new user", zap.Uint("user_id", user.ID), zap.String("nickname", user.Nickname))
	case err != nil:
		return nil, err
	case nickname != "" && user.Nickname != nickname:
		user.Nickname = nickname
		if err := db.Model(&user).Update("nickname", nickname).Error; err != nil {
			return nil, err
		}
		s.Log.Info("updated user nickname", zap.Uint("user_id", user.ID), zap.String("nickname", nickname))
	}
	return &user, nil
}

// UserFromContext returns the user attached by UserSync.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// WithUser attaches user to ctx the way UserSync does.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
