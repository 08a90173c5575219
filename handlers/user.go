package handlers

import (
	"net/http"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/utils"
)

type meResponse struct {
	Nickname  string              `json:"nickname"`
	DeckCount int64               `json:"deck_count"`
	Settings  models.UserSettings `json:"settings"`
}

// GET /api/users/me
func (db *DBHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var count int64
	if err := db.WithContext(r.Context()).Model(&models.Deck{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	utils.WriteJSON(w, http.StatusOK, meResponse{
		Nickname:  user.Nickname,
		DeckCount: count,
		Settings:  db.settingsFor(r.Context(), user.ID),
	})
}
