package handlers

import (
	"errors"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
	"github.com/andrewpaige1/nodebook-study/utils"
)

func (db *DBHandler) deckCards(r *http.Request, deck models.Deck) ([]models.Flashcard, error) {
	cards := []models.Flashcard{}
	err := db.WithContext(r.Context()).Where("deck_id = ?", deck.ID).Order("id").Find(&cards).Error
	return cards, err
}

// GET /api/cards/?deck={deckID}
func (db *DBHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, false)
	if !ok {
		return
	}

	cards, err := db.deckCards(r, deck)
	if err != nil {
		db.Log.Error("ListCards: failed to fetch cards", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load cards, please retry")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": cards})
}

// GET /api/decks/{deckID}/cards
func (db *DBHandler) GetFlashcardsForDeck(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, false)
	if !ok {
		return
	}

	cards, err := db.deckCards(r, deck)
	if err != nil {
		db.Log.Error("GetFlashcardsForDeck: failed to fetch cards", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load cards, please retry")
		return
	}
	utils.WriteJSON(w, http.StatusOK, cards)
}

type flashcardRequest struct {
	FrontText string `json:"front_text" validate:"required,max=500"`
	BackText  string `json:"back_text" validate:"required,max=1000"`
}

// POST /api/decks/{deckID}/cards
func (db *DBHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, true)
	if !ok {
		return
	}

	var req flashcardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate ID")
		return
	}

	flashcard := models.Flashcard{
		PublicID:  publicID,
		FrontText: req.FrontText,
		BackText:  req.BackText,
		DeckID:    deck.ID,
	}
	if err := db.WithContext(r.Context()).Create(&flashcard).Error; err != nil {
		db.Log.Error("CreateFlashcard: failed to create flashcard", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create flashcard")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, flashcard)
}

// PUT /api/decks/{deckID}/cards/{cardID}
func (db *DBHandler) UpdateFlashcardByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, true)
	if !ok {
		return
	}

	var flashcard models.Flashcard
	if err := db.WithContext(r.Context()).Where("public_id = ? AND deck_id = ?", r.PathValue("cardID"), deck.ID).First(&flashcard).Error; err != nil {
		writeError(w, http.StatusNotFound, "Flashcard not found")
		return
	}

	var req struct {
		FrontText *string `json:"front_text,omitempty" validate:"omitempty,min=1,max=500"`
		BackText  *string `json:"back_text,omitempty" validate:"omitempty,min=1,max=1000"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.FrontText != nil {
		flashcard.FrontText = *req.FrontText
	}
	if req.BackText != nil {
		flashcard.BackText = *req.BackText
	}

	if err := db.WithContext(r.Context()).Model(&flashcard).Select("front_text", "back_text").Updates(&flashcard).Error; err != nil {
		db.Log.Error("UpdateFlashcardByID: failed to update flashcard", zap.String("card_id", flashcard.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update flashcard")
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcard)
}

// DELETE /api/decks/{deckID}/cards/{cardID}
func (db *DBHandler) DeleteFlashcardByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, true)
	if !ok {
		return
	}

	result := db.WithContext(r.Context()).Where("public_id = ? AND deck_id = ?", r.PathValue("cardID"), deck.ID).Delete(&models.Flashcard{})
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete flashcard")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "Flashcard not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (db *DBHandler) writeReviewError(w http.ResponseWriter, cardID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Flashcard not found")
		return
	}
	db.Log.Warn("failed to record review", zap.String("card_id", cardID), zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "Could not save progress, please retry")
}

// POST /api/flashcards/{cardID}/update_review_progress/
func (db *DBHandler) UpdateReviewProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("cardID")

	var req struct {
		IsCorrect *bool `json:"is_correct" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, _, err := db.Progress.Review(r.Context(), user.ID, study.ProgressUpdate{CardID: cardID, Correct: *req.IsCorrect})
	if err != nil {
		db.writeReviewError(w, cardID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, card)
}

// POST /api/flashcards/{cardID}/review/
func (db *DBHandler) ReviewFlashcard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("cardID")

	var req struct {
		Outcome string `json:"outcome"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := study.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, sched, err := db.Progress.Review(r.Context(), user.ID, study.ProgressUpdate{CardID: cardID, Correct: outcome.Correct(), Outcome: outcome})
	if err != nil {
		db.writeReviewError(w, cardID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"card": card, "schedule": sched})
}
