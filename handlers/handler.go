package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/notify"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
)

type DBHandler struct {
	*gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Sessions *study.Manager
	Progress *repository.ProgressRepository
	Settings repository.SettingsStore
	Inbox    *repository.NotificationRepository
	Notifier *notify.Dispatcher
	Hub      *notify.Hub
}

// Routes registers every endpoint. withUser resolves the token subject to
// a stored user before the handler runs.
func (db *DBHandler) Routes(withUser func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	// User
	mux.HandleFunc("GET /api/users/me", withUser(db.GetMe))
	mux.HandleFunc("GET /api/users/{nickname}/decks", withUser(db.GetDecksForUser))

	// Deck
	mux.HandleFunc("GET /api/decks", withUser(db.ListDecks))
	mux.HandleFunc("POST /api/decks", withUser(db.CreateDeck))
	mux.HandleFunc("POST /api/decks/import", withUser(db.ImportDeck))
	mux.HandleFunc("GET /api/decks/{deckID}", withUser(db.GetDeckByID))
	mux.HandleFunc("PUT /api/decks/{deckID}", withUser(db.UpdateDeckByID))
	mux.HandleFunc("DELETE /api/decks/{deckID}", withUser(db.DeleteDeckByID))
	mux.HandleFunc("POST /api/decks/{deckID}/clone", withUser(db.CloneDeck))
	mux.HandleFunc("GET /api/decks/{deckID}/results", withUser(db.GetDeckResults))

	// Flashcard
	mux.HandleFunc("GET /api/cards/{$}", withUser(db.ListCards))
	mux.HandleFunc("GET /api/decks/{deckID}/cards", withUser(db.GetFlashcardsForDeck))
	mux.HandleFunc("POST /api/decks/{deckID}/cards", withUser(db.CreateFlashcard))
	mux.HandleFunc("PUT /api/decks/{deckID}/cards/{cardID}", withUser(db.UpdateFlashcardByID))
	mux.HandleFunc("DELETE /api/decks/{deckID}/cards/{cardID}", withUser(db.DeleteFlashcardByID))
	mux.HandleFunc("POST /api/flashcards/{cardID}/update_review_progress/{$}", withUser(db.UpdateReviewProgress))
	mux.HandleFunc("POST /api/flashcards/{cardID}/review/{$}", withUser(db.ReviewFlashcard))

	// Settings
	mux.HandleFunc("GET /api/settings/user/{$}", withUser(db.GetUserSettings))
	mux.HandleFunc("PUT /api/settings/user/{$}", withUser(db.UpdateUserSettings))

	// Study sessions
	mux.HandleFunc("POST /api/study/sessions", withUser(db.StartSession))
	mux.HandleFunc("GET /api/study/sessions/{sessionID}", withUser(db.GetSession))
	mux.HandleFunc("DELETE /api/study/sessions/{sessionID}", withUser(db.ExitSession))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/reveal", withUser(db.RevealCard))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/rate", withUser(db.RateCard))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/answer", withUser(db.AnswerCard))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/advance", withUser(db.AdvanceCard))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/skip", withUser(db.SkipCard))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/select", withUser(db.SelectTile))
	mux.HandleFunc("POST /api/study/sessions/{sessionID}/restart", withUser(db.RestartSession))

	// Notifications
	mux.HandleFunc("GET /api/notifications/{$}", withUser(db.ListNotifications))
	mux.HandleFunc("GET /api/notifications/unread_count/{$}", withUser(db.UnreadCount))
	mux.HandleFunc("POST /api/notifications/{id}/mark_read/{$}", withUser(db.MarkNotificationRead))
	mux.HandleFunc("POST /api/notifications/mark_all_read/{$}", withUser(db.MarkAllNotificationsRead))
	mux.HandleFunc("DELETE /api/notifications/{id}/{$}", withUser(db.DeleteNotification))
	mux.HandleFunc("GET /api/notifications/stream", withUser(db.StreamNotifications))
	mux.HandleFunc("POST /api/notifications/schedule/{$}", withUser(db.ScheduleNotification))
	mux.HandleFunc("DELETE /api/notifications/schedule/{handle}", withUser(db.CancelScheduledNotification))
	mux.HandleFunc("GET /api/notifications/recurring/{$}", withUser(db.ListRecurringReminders))
	mux.HandleFunc("POST /api/notifications/recurring/{$}", withUser(db.CreateRecurringReminder))
	mux.HandleFunc("DELETE /api/notifications/recurring/{id}", withUser(db.DeleteRecurringReminder))

	return mux
}
