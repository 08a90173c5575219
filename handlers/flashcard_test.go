package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/study"
	"github.com/andrewpaige1/nodebook-study/testutil"
)

func TestReviewEndpoints(t *testing.T) {
	f := newFixture(t)
	alice, user := f.login(t, "auth0|alice", "alice")
	bob, _ := f.login(t, "auth0|bob", "bob")
	deck := testutil.CreateDeck(t, f.db, user.ID, "review", 2, true)
	cardID := deck.Cards[0].PublicID

	t.Run("boolean progress uses the learn threshold", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPut, "/api/settings/user/", alice, map[string]int{"required_reviews_to_learn": 2})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		path := "/api/flashcards/" + cardID + "/update_review_progress/"
		resp, body := f.do(t, http.MethodPost, path, alice, map[string]bool{"is_correct": true})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		card := decode[models.Flashcard](t, body)
		assert.Equal(t, 1, card.ReviewCount)
		assert.False(t, card.Learned)

		resp, body = f.do(t, http.MethodPost, path, alice, map[string]bool{"is_correct": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		card = decode[models.Flashcard](t, body)
		assert.Equal(t, 2, card.ReviewCount)
		assert.True(t, card.Learned)

		resp, _ = f.do(t, http.MethodPost, path, alice, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "is_correct is required")
	})

	t.Run("outcome review returns the schedule", func(t *testing.T) {
		path := "/api/flashcards/" + deck.Cards[1].PublicID + "/review/"
		resp, body := f.do(t, http.MethodPost, path, alice, map[string]string{"outcome": "easy"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		got := decode[struct {
			Card     models.Flashcard `json:"card"`
			Schedule study.Schedule   `json:"schedule"`
		}](t, body)
		assert.Equal(t, study.Schedule{IntervalDays: 3, Learned: true}, got.Schedule)
		assert.True(t, got.Card.Learned)
		require.NotNil(t, got.Card.NextReview)
		require.NotNil(t, got.Card.LastReviewed)
		assert.True(t, got.Card.NextReview.Equal(got.Card.LastReviewed.AddDate(0, 0, 3)))

		resp, _ = f.do(t, http.MethodPost, path, alice, map[string]string{"outcome": "perfect"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("other users cannot record progress", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/flashcards/"+cardID+"/review/", bob, map[string]string{"outcome": "good"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestFlashcardEditing(t *testing.T) {
	f := newFixture(t)
	alice, user := f.login(t, "auth0|alice", "alice")
	deck := testutil.CreateDeck(t, f.db, user.ID, "edit", 2, false)
	base := "/api/decks/" + deck.PublicID + "/cards/"

	resp, body := f.do(t, http.MethodPut, base+deck.Cards[0].PublicID, alice, map[string]string{"back_text": "updated"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	card := decode[models.Flashcard](t, body)
	assert.Equal(t, "front 0", card.FrontText)
	assert.Equal(t, "updated", card.BackText)

	resp, _ = f.do(t, http.MethodPut, base+"missing", alice, map[string]string{"back_text": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, base+deck.Cards[1].PublicID, alice, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, base+deck.Cards[1].PublicID, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/decks/"+deck.PublicID+"/cards", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Flashcard](t, body), 1)
}

func TestSettingsAndMe(t *testing.T) {
	f := newFixture(t)
	alice, user := f.login(t, "auth0|alice", "alice")
	testutil.CreateDeck(t, f.db, user.ID, "one", 1, false)

	resp, body := f.do(t, http.MethodGet, "/api/settings/user/", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cards_per_session":20,"default_session_duration":20,"required_reviews_to_learn":3}`, string(body))

	resp, _ = f.do(t, http.MethodPut, "/api/settings/user/", alice, map[string]int{"cards_per_session": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPut, "/api/settings/user/", alice, map[string]int{"default_session_duration": 45})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"cards_per_session":20,"default_session_duration":45,"required_reviews_to_learn":3}`, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/users/me", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[struct {
		Nickname  string              `json:"nickname"`
		DeckCount int64               `json:"deck_count"`
		Settings  models.UserSettings `json:"settings"`
	}](t, body)
	assert.Equal(t, "alice", me.Nickname)
	assert.EqualValues(t, 1, me.DeckCount)
	assert.Equal(t, 45, me.Settings.DefaultSessionDuration)
}
