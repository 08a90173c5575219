package handlers

import (
	"errors"
	"fmt"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/utils"
)

type deckResponse struct {
	models.Deck
	IsOwner   bool `json:"is_owner"`
	CardCount int  `json:"card_count"`
}

func newDeckResponse(deck models.Deck, userID uint, withCards bool) deckResponse {
	resp := deckResponse{Deck: deck, IsOwner: deck.UserID == userID, CardCount: len(deck.Cards)}
	if !withCards {
		resp.Cards = nil
	}
	return resp
}

// findDeck loads a deck by public ID and writes the error response when it
// is missing or not accessible. Private decks of other users read as
// missing.
func (db *DBHandler) findDeck(w http.ResponseWriter, r *http.Request, userID uint, ownerOnly bool) (models.Deck, bool) {
	deckID := r.PathValue("deckID")
	if deckID == "" {
		deckID = r.URL.Query().Get("deck")
	}
	if deckID == "" {
		writeError(w, http.StatusBadRequest, "Deck ID is required")
		return models.Deck{}, false
	}

	var deck models.Deck
	err := db.WithContext(r.Context()).Where("public_id = ?", deckID).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !deck.VisibleTo(userID)) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Deck with ID %s not found", deckID))
		return models.Deck{}, false
	}
	if err != nil {
		db.Log.Error("failed to load deck", zap.String("deck_id", deckID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load deck, please retry")
		return models.Deck{}, false
	}
	if ownerOnly && deck.UserID != userID {
		db.Log.Info("forbidden deck access", zap.String("deck_id", deckID), zap.Uint("user_id", userID))
		writeError(w, http.StatusForbidden, "Forbidden")
		return models.Deck{}, false
	}
	return deck, true
}

// GET /api/decks
func (db *DBHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var decks []models.Deck
	if err := db.WithContext(r.Context()).Preload("Cards").Where("user_id = ?", user.ID).Order("created_at desc").Find(&decks).Error; err != nil {
		db.Log.Error("ListDecks: failed to fetch decks", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch decks")
		return
	}

	resp := make([]deckResponse, 0, len(decks))
	for _, d := range decks {
		resp = append(resp, newDeckResponse(d, user.ID, false))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// GET /api/users/{nickname}/decks
func (db *DBHandler) GetDecksForUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	nickname := r.PathValue("nickname")

	var owner models.User
	if err := db.WithContext(r.Context()).Where("nickname = ?", nickname).First(&owner).Error; err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("User not found for nickname=%s", nickname))
		return
	}

	query := db.WithContext(r.Context()).Preload("Cards").Where("user_id = ?", owner.ID)
	if owner.ID != user.ID {
		query = query.Where("is_public = ?", true)
	}

	var decks []models.Deck
	if err := query.Order("created_at desc").Find(&decks).Error; err != nil {
		db.Log.Error("GetDecksForUser: failed to fetch decks", zap.Uint("owner_id", owner.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch decks")
		return
	}

	resp := make([]deckResponse, 0, len(decks))
	for _, d := range decks {
		resp = append(resp, newDeckResponse(d, user.ID, false))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// GET /api/decks/{deckID}
func (db *DBHandler) GetDeckByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, false)
	if !ok {
		return
	}
	if err := db.WithContext(r.Context()).Where("deck_id = ?", deck.ID).Order("id").Find(&deck.Cards).Error; err != nil {
		db.Log.Error("GetDeckByID: failed to fetch cards", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load cards, please retry")
		return
	}
	utils.WriteJSON(w, http.StatusOK, newDeckResponse(deck, user.ID, true))
}

type deckRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	IsPublic    bool   `json:"is_public"`
}

// POST /api/decks
func (db *DBHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req deckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		db.Log.Error("CreateDeck: failed to generate public id", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	deck := models.Deck{
		PublicID:    publicID,
		Name:        req.Name,
		Description: req.Description,
		UserID:      user.ID,
		IsPublic:    req.IsPublic,
	}
	if err := db.WithContext(r.Context()).Create(&deck).Error; err != nil {
		db.Log.Error("CreateDeck: failed to create deck", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create deck")
		return
	}

	db.Log.Info("created deck", zap.String("deck_id", publicID), zap.Uint("user_id", user.ID))
	utils.WriteJSON(w, http.StatusCreated, newDeckResponse(deck, user.ID, true))
}

// PUT /api/decks/{deckID}
func (db *DBHandler) UpdateDeckByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, true)
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
		IsPublic    *bool   `json:"is_public,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		deck.Name = *req.Name
		updates["name"] = deck.Name
	}
	if req.Description != nil {
		deck.Description = *req.Description
		updates["description"] = deck.Description
	}
	if req.IsPublic != nil {
		deck.IsPublic = *req.IsPublic
		updates["is_public"] = deck.IsPublic
	}

	if len(updates) > 0 {
		if err := db.WithContext(r.Context()).Model(&deck).Updates(updates).Error; err != nil {
			db.Log.Error("UpdateDeckByID: failed to update deck", zap.String("deck_id", deck.PublicID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update deck with ID %s", deck.PublicID))
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, newDeckResponse(deck, user.ID, false))
}

// DELETE /api/decks/{deckID}
func (db *DBHandler) DeleteDeckByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deck, ok := db.findDeck(w, r, user.ID, true)
	if !ok {
		return
	}

	err := db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", deck.ID).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		return tx.Delete(&deck).Error
	})
	if err != nil {
		db.Log.Error("DeleteDeckByID: failed to delete deck", zap.String("deck_id", deck.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete deck with ID %s", deck.PublicID))
		return
	}

	db.Log.Info("deleted deck", zap.String("deck_id", deck.PublicID))
	w.WriteHeader(http.StatusNoContent)
}

type importCard struct {
	FrontText string `json:"front_text" validate:"required,max=500"`
	BackText  string `json:"back_text" validate:"required,max=1000"`
}

type importRequest struct {
	deckRequest
	Cards []importCard `json:"cards" validate:"dive"`
}

// createDeckWithCards stores a deck and its cards in one transaction.
func (db *DBHandler) createDeckWithCards(r *http.Request, deck *models.Deck, cards []importCard) error {
	publicID, err := gonanoid.New()
	if err != nil {
		return err
	}
	deck.PublicID = publicID

	return db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deck).Error; err != nil {
			return err
		}
		for _, c := range cards {
			cardID, err := gonanoid.New()
			if err != nil {
				return err
			}
			card := models.Flashcard{
				PublicID:  cardID,
				FrontText: c.FrontText,
				BackText:  c.BackText,
				DeckID:    deck.ID,
			}
			if err := tx.Create(&card).Error; err != nil {
				return err
			}
			deck.Cards = append(deck.Cards, card)
		}
		return nil
	})
}

// POST /api/decks/import
func (db *DBHandler) ImportDeck(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deck := models.Deck{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		UserID:      user.ID,
	}
	if err := db.createDeckWithCards(r, &deck, req.Cards); err != nil {
		db.Log.Error("ImportDeck: failed to import deck", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to import deck")
		return
	}

	db.Log.Info("imported deck", zap.String("deck_id", deck.PublicID), zap.Int("cards", len(deck.Cards)))
	utils.WriteJSON(w, http.StatusCreated, newDeckResponse(deck, user.ID, true))
}

// POST /api/decks/{deckID}/clone copies a visible deck into the caller's
// library with fresh review progress.
func (db *DBHandler) CloneDeck(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	src, ok := db.findDeck(w, r, user.ID, false)
	if !ok {
		return
	}

	var cards []models.Flashcard
	if err := db.WithContext(r.Context()).Where("deck_id = ?", src.ID).Order("id").Find(&cards).Error; err != nil {
		db.Log.Error("CloneDeck: failed to fetch cards", zap.String("deck_id", src.PublicID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not load cards, please retry")
		return
	}

	copies := make([]importCard, len(cards))
	for i, c := range cards {
		copies[i] = importCard{FrontText: c.FrontText, BackText: c.BackText}
	}
	deck := models.Deck{
		Name:        src.Name,
		Description: src.Description,
		UserID:      user.ID,
	}
	if err := db.createDeckWithCards(r, &deck, copies); err != nil {
		db.Log.Error("CloneDeck: failed to clone deck", zap.String("deck_id", src.PublicID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to clone deck")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, newDeckResponse(deck, user.ID, true))
}
