package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/utils"
)

// GET /api/settings/user/
func (db *DBHandler) GetUserSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, db.settingsFor(r.Context(), user.ID))
}

// PUT /api/settings/user/ accepts a partial update.
func (db *DBHandler) UpdateUserSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	current, err := db.Settings.GetSettings(r.Context(), user.ID)
	if err != nil {
		db.Log.Error("UpdateUserSettings: failed to load settings", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load settings, please retry")
		return
	}

	var req struct {
		CardsPerSession        *int `json:"cards_per_session"`
		DefaultSessionDuration *int `json:"default_session_duration"`
		RequiredReviewsToLearn *int `json:"required_reviews_to_learn"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CardsPerSession != nil {
		current.CardsPerSession = *req.CardsPerSession
	}
	if req.DefaultSessionDuration != nil {
		current.DefaultSessionDuration = *req.DefaultSessionDuration
	}
	if req.RequiredReviewsToLearn != nil {
		current.RequiredReviewsToLearn = *req.RequiredReviewsToLearn
	}
	current.UserID = user.ID
	if err := config.Validate(current); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := db.Settings.SaveSettings(r.Context(), current)
	if err != nil {
		db.Log.Error("UpdateUserSettings: failed to save settings", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, saved)
}
