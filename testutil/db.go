// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/models"
)

// NewDB returns a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz", 12)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// CreateUser inserts a user with the given subject.
func CreateUser(t *testing.T, db *gorm.DB, auth0ID, nickname string) models.User {
	t.Helper()
	u := models.User{Auth0ID: auth0ID, Nickname: nickname}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CreateDeck inserts a deck owned by userID with n generated cards.
func CreateDeck(t *testing.T, db *gorm.DB, userID uint, name string, n int, public bool) models.Deck {
	t.Helper()
	deck := models.Deck{PublicID: name + "-id", Name: name, UserID: userID, IsPublic: public}
	require.NoError(t, db.Create(&deck).Error)
	for i := 0; i < n; i++ {
		card := models.Flashcard{
			PublicID:  fmt.Sprintf("%s-card-%02d", name, i),
			FrontText: fmt.Sprintf("front %d", i),
			BackText:  fmt.Sprintf("back %d", i),
			DeckID:    deck.ID,
		}
		require.NoError(t, db.Create(&card).Error)
		deck.Cards = append(deck.Cards, card)
	}
	return deck
}
