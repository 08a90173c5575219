package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/middleware"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
	"github.com/andrewpaige1/nodebook-study/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	utils.WriteJSON(w, status, errorResponse{Error: msg})
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return user, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// settingsFor never fails: a read error falls back to the defaults.
func (db *DBHandler) settingsFor(ctx context.Context, userID uint) models.UserSettings {
	s, err := db.Settings.GetSettings(ctx, userID)
	if err != nil {
		db.Log.Warn("failed to load settings, using defaults", zap.Uint("user_id", userID), zap.Error(err))
		return models.DefaultSettings(userID)
	}
	return s
}

type insufficientCardsResponse struct {
	State                string     `json:"state"`
	Mode                 study.Mode `json:"mode"`
	Have                 int        `json:"have"`
	Need                 int        `json:"need"`
	PracticeAllAvailable bool       `json:"practice_all_available"`
}

// writeStudyError maps study and repository errors to HTTP responses.
func (db *DBHandler) writeStudyError(w http.ResponseWriter, err error) {
	var insufficient *study.InsufficientCardsError
	switch {
	case errors.As(err, &insufficient):
		utils.WriteJSON(w, http.StatusConflict, insufficientCardsResponse{
			State:                "insufficient_cards",
			Mode:                 insufficient.Mode,
			Have:                 insufficient.Have,
			Need:                 insufficient.Need,
			PracticeAllAvailable: insufficient.PracticeAllPossible,
		})
	case errors.Is(err, study.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, study.ErrInvalidOutcome), errors.Is(err, study.ErrInvalidMode), errors.Is(err, study.ErrUnknownTile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, study.ErrInvalidTransition), errors.Is(err, study.ErrSelectionPending),
		errors.Is(err, study.ErrTileLocked), errors.Is(err, study.ErrSessionClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		db.Log.Error("unexpected study error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
