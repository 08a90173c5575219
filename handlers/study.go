package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
	"github.com/andrewpaige1/nodebook-study/utils"
)

// loadPool returns every card of a deck visible to userID.
func (db *DBHandler) loadPool(r *http.Request, deckID string, userID uint) ([]study.Card, error) {
	var deck models.Deck
	err := db.WithContext(r.Context()).Where("public_id = ?", deckID).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !deck.VisibleTo(userID)) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cards, err := db.deckCards(r, deck)
	if err != nil {
		return nil, err
	}
	return models.StudyCards(cards), nil
}

func (db *DBHandler) writePoolError(w http.ResponseWriter, deckID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}
	db.Log.Error("failed to load cards for study", zap.String("deck_id", deckID), zap.Error(err))
	w.Header().Set("Retry-After", "5")
	writeError(w, http.StatusServiceUnavailable, "Could not load cards, please retry")
}

// POST /api/study/sessions
func (db *DBHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Deck        string `json:"deck"`
		Mode        string `json:"mode"`
		PracticeAll bool   `json:"practice_all"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Deck == "" {
		writeError(w, http.StatusBadRequest, "Deck ID is required")
		return
	}
	mode, err := study.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool, err := db.loadPool(r, req.Deck, user.ID)
	if err != nil {
		db.writePoolError(w, req.Deck, err)
		return
	}

	settings := db.settingsFor(r.Context(), user.ID)
	s, err := db.Sessions.Start(user.ID, req.Deck, mode, pool, study.BuildOptions{
		MaxCards:    settings.CardsPerSession,
		PracticeAll: req.PracticeAll,
	})
	if err != nil {
		db.writeStudyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, s.View())
}

func (db *DBHandler) session(w http.ResponseWriter, r *http.Request) (*study.Session, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	s, err := db.Sessions.Get(r.PathValue("sessionID"), user.ID)
	if err != nil {
		db.writeStudyError(w, err)
		return nil, false
	}
	return s, true
}

// act runs one session transition and responds with the new view.
func (db *DBHandler) act(w http.ResponseWriter, r *http.Request, fn func(s *study.Session) error) {
	s, ok := db.session(w, r)
	if !ok {
		return
	}
	if err := fn(s); err != nil {
		db.writeStudyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.View())
}

// GET /api/study/sessions/{sessionID}
func (db *DBHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	db.act(w, r, func(*study.Session) error { return nil })
}

// DELETE /api/study/sessions/{sessionID}
func (db *DBHandler) ExitSession(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := db.Sessions.Remove(r.PathValue("sessionID"), user.ID); err != nil {
		db.writeStudyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/study/sessions/{sessionID}/reveal
func (db *DBHandler) RevealCard(w http.ResponseWriter, r *http.Request) {
	db.act(w, r, (*study.Session).Reveal)
}

// POST /api/study/sessions/{sessionID}/rate
func (db *DBHandler) RateCard(w http.ResponseWriter, r *http.Request) {
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
	db.act(w, r, func(s *study.Session) error { return s.Rate(outcome) })
}

type answerResponse struct {
	Feedback study.Feedback `json:"feedback"`
	View     study.View     `json:"view"`
}

// POST /api/study/sessions/{sessionID}/answer
func (db *DBHandler) AnswerCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := db.session(w, r)
	if !ok {
		return
	}
	fb, err := s.Answer(req.Answer)
	if err != nil {
		db.writeStudyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, answerResponse{Feedback: fb, View: s.View()})
}

// POST /api/study/sessions/{sessionID}/advance
func (db *DBHandler) AdvanceCard(w http.ResponseWriter, r *http.Request) {
	db.act(w, r, (*study.Session).Advance)
}

// POST /api/study/sessions/{sessionID}/skip
func (db *DBHandler) SkipCard(w http.ResponseWriter, r *http.Request) {
	db.act(w, r, (*study.Session).Skip)
}

type selectResponse struct {
	Result study.MatchResult `json:"result"`
	View   study.View        `json:"view"`
}

// POST /api/study/sessions/{sessionID}/select
func (db *DBHandler) SelectTile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TileID string `json:"tile_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := db.session(w, r)
	if !ok {
		return
	}
	result, err := s.Select(req.TileID)
	if err != nil {
		db.writeStudyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, selectResponse{Result: result, View: s.View()})
}

// POST /api/study/sessions/{sessionID}/restart reloads the deck so the new
// plan reflects progress saved during the previous run.
func (db *DBHandler) RestartSession(w http.ResponseWriter, r *http.Request) {
	s, ok := db.session(w, r)
	if !ok {
		return
	}

	pool, err := db.loadPool(r, s.DeckID(), s.UserID())
	if err != nil {
		db.writePoolError(w, s.DeckID(), err)
		return
	}
	settings := db.settingsFor(r.Context(), s.UserID())
	s, err = db.Sessions.Restart(s.ID(), s.UserID(), pool, study.BuildOptions{MaxCards: settings.CardsPerSession})
	if err != nil {
		db.writeStudyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.View())
}
