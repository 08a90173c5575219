package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/study"
)

var _ study.ProgressStore = (*ProgressRepository)(nil)

// ProgressRepository stores review progress on the flashcard rows and
// session summaries in session_results.
type ProgressRepository struct {
	db       *gorm.DB
	settings SettingsStore
	clock    clock.Clock
	log      *zap.Logger
}

func NewProgressRepository(db *gorm.DB, settings SettingsStore, clk clock.Clock, log *zap.Logger) *ProgressRepository {
	return &ProgressRepository{db: db, settings: settings, clock: clk, log: log}
}

// OwnedCard loads a card by public ID, restricted to decks the user owns.
func (r *ProgressRepository) OwnedCard(ctx context.Context, userID uint, cardID string) (models.Flashcard, error) {
	var card models.Flashcard
	err := r.db.WithContext(ctx).
		Joins("JOIN decks ON decks.id = flashcards.deck_id AND decks.deleted_at IS NULL").
		Where("flashcards.public_id = ? AND decks.user_id = ?", cardID, userID).
		First(&card).Error
	return card, notFound(err)
}

// RequiredReviews returns the user's learn threshold, falling back to the
// default when settings cannot be read.
func (r *ProgressRepository) RequiredReviews(ctx context.Context, userID uint) int {
	s, err := r.settings.GetSettings(ctx, userID)
	if err != nil {
		r.log.Warn("failed to load settings, using defaults", zap.Uint("user_id", userID), zap.Error(err))
		return models.DefaultSettings(userID).RequiredReviewsToLearn
	}
	return s.RequiredReviewsToLearn
}

// Review applies one answer to the card and stores the result. A valid
// outcome uses the four-way schedule; otherwise correct is used with the
// user's learn threshold.
func (r *ProgressRepository) Review(ctx context.Context, userID uint, update study.ProgressUpdate) (models.Flashcard, study.Schedule, error) {
	card, err := r.OwnedCard(ctx, userID, update.CardID)
	if err != nil {
		return models.Flashcard{}, study.Schedule{}, err
	}

	now := r.clock.Now()
	var next study.Card
	var sched study.Schedule
	if update.Outcome.IsValid() {
		next, sched = study.ApplyOutcome(card.StudyCard(), update.Outcome, now)
	} else {
		next, sched = study.ApplyResult(card.StudyCard(), update.Correct, r.RequiredReviews(ctx, userID), now)
	}
	card.SetProgress(next)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&card).
			Select("learned", "review_count", "last_reviewed", "next_review").
			Updates(&card).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Deck{}).Where("id = ?", card.DeckID).Update("last_studied", now).Error
	})
	if err != nil {
		return models.Flashcard{}, study.Schedule{}, fmt.Errorf("save progress for card %s: %w", update.CardID, err)
	}
	return card, sched, nil
}

// UpdateCardProgress is called by the background persister. Cards the user
// does not own, such as those of a public deck, are left untouched.
func (r *ProgressRepository) UpdateCardProgress(ctx context.Context, userID uint, update study.ProgressUpdate) error {
	_, _, err := r.Review(ctx, userID, update)
	if errors.Is(err, ErrNotFound) {
		r.log.Debug("skipping progress for card not owned by user", zap.Uint("user_id", userID), zap.String("card_id", update.CardID))
		return nil
	}
	return err
}

// SaveSessionResult records a completed session once per session run.
func (r *ProgressRepository) SaveSessionResult(ctx context.Context, summary study.Summary) error {
	var deck models.Deck
	if err := r.db.WithContext(ctx).Where("public_id = ?", summary.DeckID).First(&deck).Error; err != nil {
		return fmt.Errorf("load deck %s: %w", summary.DeckID, notFound(err))
	}

	completed := summary.CompletedAt
	if completed.IsZero() {
		completed = r.clock.Now()
	}
	result := models.SessionResult{
		SessionID:       summary.SessionID,
		UserID:          summary.UserID,
		DeckID:          deck.ID,
		Mode:            string(summary.Mode),
		TotalCards:      summary.TotalCards,
		Correct:         summary.Counters.Correct,
		Medium:          summary.Counters.Medium,
		Difficult:       summary.Counters.Difficult,
		Incorrect:       summary.Counters.Incorrect,
		Skipped:         summary.Counters.Skipped,
		DurationSeconds: int(summary.Duration() / time.Second),
		CompletedAt:     completed,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&result).Error
}

// ResultsForDeck lists a user's results for a deck, newest first.
func (r *ProgressRepository) ResultsForDeck(ctx context.Context, userID, deckID uint, limit int) ([]models.SessionResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []models.SessionResult
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Order("completed_at desc").
		Limit(limit).
		Find(&results).Error
	return results, err
}
