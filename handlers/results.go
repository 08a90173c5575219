package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/utils"
)

type resultResponse struct {
	models.SessionResult
	Accuracy float64 `json:"accuracy"`
}

// GET /api/decks/{deckID}/results lists the caller's own session results
// for a deck, newest first.
func (db *DBHandler) GetDeckResults(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, false)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := db.Progress.ResultsForDeck(r.Context(), user.ID, deck.ID, limit)
	if err != nil {
		db.Log.Error("GetDeckResults: failed to fetch results", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	resp := make([]resultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, resultResponse{SessionResult: res, Accuracy: res.Accuracy()})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
