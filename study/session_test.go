package study_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/study"
	mock_study "github.com/andrewpaige1/nodebook-study/study/mock"
)

const userID uint = 7

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func deck(n int) []study.Card {
	cards := make([]study.Card, n)
	for i := range cards {
		cards[i] = study.Card{
			ID:        fmt.Sprintf("card-%d", i),
			FrontText: fmt.Sprintf("word %d", i),
			BackText:  fmt.Sprintf("Wort %d", i),
		}
	}
	return cards
}

func newSession(t *testing.T, mode study.Mode, cards []study.Card, sink study.ProgressSink, clk clock.Clock) *study.Session {
	t.Helper()
	plan, err := study.BuildSession(cards, mode, study.BuildOptions{Now: t0, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)
	return study.NewSession(study.Config{
		ID:     "s1",
		UserID: userID,
		DeckID: "deck-1",
		Pool:   cards,
		Sink:   sink,
		Clock:  clk,
		Rand:   rand.New(rand.NewSource(2)),
	}, plan)
}

func backOf(cards []study.Card, id string) string {
	for _, c := range cards {
		if c.ID == id {
			return c.BackText
		}
	}
	return ""
}

func TestSession_FlashcardFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	clk := clock.NewFake(t0)

	cards := deck(3)
	sink.EXPECT().EnqueueProgress(userID, gomock.Any()).Times(3)
	sink.EXPECT().EnqueueResult(gomock.Any()).Do(func(s study.Summary) {
		assert.Equal(t, "s1", s.SessionID)
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, study.ModeFlashcard, s.Mode)
		assert.Equal(t, 3, s.TotalCards)
		assert.Equal(t, study.Counters{Correct: 1, Medium: 1, Difficult: 1}, s.Counters)
	}).Times(1)

	s := newSession(t, study.ModeFlashcard, cards, sink, clk)

	v := s.View()
	assert.Equal(t, study.StatePresenting, v.State)
	require.NotNil(t, v.Card)
	assert.Empty(t, v.Card.Back, "back stays hidden until revealed")
	assert.ErrorIs(t, s.Rate(study.Good), study.ErrInvalidTransition)

	prev := -1
	for _, outcome := range []study.Outcome{study.Good, study.Hard, study.Again} {
		v = s.View()
		assert.Greater(t, v.Index, prev)
		prev = v.Index

		require.NoError(t, s.Reveal())
		v = s.View()
		assert.Equal(t, study.StateRevealed, v.State)
		assert.Equal(t, backOf(cards, v.Card.ID), v.Card.Back)
		require.NoError(t, s.Rate(outcome))
	}

	v = s.View()
	assert.Equal(t, study.StateComplete, v.State)
	assert.Equal(t, 3, v.Index)
	assert.Equal(t, v.Total, v.Index)
	assert.Nil(t, v.Card)
	assert.ErrorIs(t, s.Reveal(), study.ErrInvalidTransition)
}

func TestSession_SpacedReportsSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)

	cards := []study.Card{{ID: "only", FrontText: "Haus", BackText: "house", ReviewCount: 1}}
	sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: "only", Correct: true, Outcome: study.Good}).Times(1)
	sink.EXPECT().EnqueueResult(gomock.Any()).Times(1)

	s := newSession(t, study.ModeSpaced, cards, sink, clock.NewFake(t0))
	require.NoError(t, s.Reveal())
	require.NoError(t, s.Rate(study.Good))

	v := s.View()
	require.NotNil(t, v.Last)
	require.NotNil(t, v.Last.Schedule)
	assert.Equal(t, study.Schedule{IntervalDays: 4, Learned: true}, *v.Last.Schedule)
	assert.Equal(t, study.StateComplete, v.State)
}

func TestSession_FlashcardRatingSendsCorrectOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)

	cards := []study.Card{{ID: "only", FrontText: "Haus", BackText: "house"}}
	sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: "only", Correct: true}).Times(1)
	sink.EXPECT().EnqueueResult(gomock.Any()).Times(1)

	s := newSession(t, study.ModeFlashcard, cards, sink, clock.NewFake(t0))
	require.NoError(t, s.Reveal())
	require.NoError(t, s.Rate(study.Easy))

	v := s.View()
	require.NotNil(t, v.Last)
	assert.Equal(t, study.Easy, v.Last.Outcome)
	assert.Nil(t, v.Last.Schedule)
}

func TestSession_QuizFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)

	cards := deck(4)
	sink.EXPECT().EnqueueProgress(userID, gomock.Any()).Times(4)
	sink.EXPECT().EnqueueResult(gomock.Any()).Times(1)

	s := newSession(t, study.ModeQuiz, cards, sink, clock.NewFake(t0))
	assert.ErrorIs(t, s.Reveal(), study.ErrInvalidTransition)

	for i := 0; i < 4; i++ {
		v := s.View()
		require.Equal(t, study.StatePresenting, v.State)
		require.Len(t, v.Options, study.QuizOptionCount)
		expected := backOf(cards, v.Card.ID)
		assert.Contains(t, v.Options, expected)

		answer := expected
		if i%2 == 1 {
			for _, o := range v.Options {
				if o != expected {
					answer = o
					break
				}
			}
		}
		fb, err := s.Answer(answer)
		require.NoError(t, err)
		assert.Equal(t, i%2 == 0, fb.Correct)
		assert.Equal(t, expected, fb.Expected)
		assert.Equal(t, study.StateAnswered, s.View().State)

		_, err = s.Answer(answer)
		assert.ErrorIs(t, err, study.ErrInvalidTransition)
		require.NoError(t, s.Advance())
	}

	v := s.View()
	assert.Equal(t, study.StateComplete, v.State)
	assert.Equal(t, study.Counters{Correct: 2, Incorrect: 2}, v.Counters)
}

func TestSession_WriteTimeoutSkips(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	clk := clock.NewFake(t0)

	cards := deck(2)
	s := newSession(t, study.ModeWrite, cards, sink, clk)

	first := s.View()
	require.NotNil(t, first.Deadline)
	assert.Equal(t, t0.Add(study.DefaultWriteTimeout), *first.Deadline)

	sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: first.Card.ID, Correct: false}).Times(1)

	clk.Advance(29 * time.Second)
	assert.Equal(t, 0, s.View().Index)

	clk.Advance(time.Second)
	v := s.View()
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, study.StatePresenting, v.State)
	require.NotNil(t, v.Last)
	assert.True(t, v.Last.TimedOut)
	assert.True(t, v.Last.Skipped)
	assert.False(t, v.Last.Correct)
	assert.Equal(t, 1, v.Counters.Skipped)

	second := v.Card.ID
	sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: second, Correct: true}).Times(1)
	fb, err := s.Answer("  " + backOf(cards, second) + " ")
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	assert.Equal(t, 0, clk.Pending(), "answering stops the countdown")

	clk.Advance(time.Minute)
	assert.Equal(t, study.StateAnswered, s.View().State)

	sink.EXPECT().EnqueueResult(gomock.Any()).Times(1)
	require.NoError(t, s.Advance())
	assert.Equal(t, study.StateComplete, s.View().State)
}

func tileFor(t *testing.T, v study.View, pairID string, typ study.TileType) string {
	t.Helper()
	for _, tile := range v.Tiles {
		if tile.PairID == pairID && tile.Type == typ {
			return tile.ID
		}
	}
	t.Fatalf("no %s tile for %s", typ, pairID)
	return ""
}

func TestSession_MatchingPairs(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	clk := clock.NewFake(t0)

	cards := deck(3)
	s := newSession(t, study.ModeMatching, cards, sink, clk)
	v := s.View()
	require.Len(t, v.Tiles, 6)

	a, b := cards[0].ID, cards[1].ID

	gomock.InOrder(
		sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: a, Correct: false}),
		sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: a, Correct: true}),
		sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: b, Correct: true}),
		sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: cards[2].ID, Correct: true}),
	)
	sink.EXPECT().EnqueueResult(gomock.Any()).Times(1)

	res, err := s.Select(tileFor(t, v, a, study.TileTerm))
	require.NoError(t, err)
	assert.Equal(t, study.MatchSelected, res)

	res, err = s.Select(tileFor(t, v, b, study.TileDefinition))
	require.NoError(t, err)
	assert.Equal(t, study.MatchMissed, res)

	_, err = s.Select(tileFor(t, v, cards[2].ID, study.TileTerm))
	assert.ErrorIs(t, err, study.ErrSelectionPending)

	clk.Advance(study.DefaultMatchFeedbackDelay)
	for _, tile := range s.View().Tiles {
		assert.False(t, tile.Selected)
	}

	_, err = s.Select("nope")
	assert.ErrorIs(t, err, study.ErrUnknownTile)

	for i, c := range cards {
		_, err = s.Select(tileFor(t, v, c.ID, study.TileDefinition))
		require.NoError(t, err)
		res, err = s.Select(tileFor(t, v, c.ID, study.TileTerm))
		require.NoError(t, err)
		assert.Equal(t, study.MatchFound, res)
		if i == 0 {
			assert.Equal(t, 1, s.View().Index)
			_, err = s.Select(tileFor(t, v, c.ID, study.TileTerm))
			assert.ErrorIs(t, err, study.ErrTileLocked)
		}
	}

	v = s.View()
	assert.Equal(t, study.StateComplete, v.State)
	assert.Equal(t, 3, v.Index)
	assert.Equal(t, study.Counters{Correct: 3, Incorrect: 1}, v.Counters)
}

func TestSession_MatchingSameTileToggles(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)

	cards := deck(3)
	s := newSession(t, study.ModeMatching, cards, sink, clock.NewFake(t0))
	tile := tileFor(t, s.View(), cards[1].ID, study.TileTerm)

	res, err := s.Select(tile)
	require.NoError(t, err)
	assert.Equal(t, study.MatchSelected, res)

	res, err = s.Select(tile)
	require.NoError(t, err)
	assert.Equal(t, study.MatchDeselected, res)
}

func TestSession_SkipRecordsIncorrect(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)

	cards := deck(2)
	s := newSession(t, study.ModeFlashcard, cards, sink, clock.NewFake(t0))
	first := s.View().Card.ID

	sink.EXPECT().EnqueueProgress(userID, study.ProgressUpdate{CardID: first, Correct: false}).Times(1)
	require.NoError(t, s.Reveal())
	require.NoError(t, s.Skip())

	v := s.View()
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, 1, v.Counters.Skipped)
	assert.True(t, v.Last.Skipped)
	assert.False(t, v.Last.TimedOut)
}

func TestSession_RestartResets(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	sink.EXPECT().EnqueueProgress(userID, gomock.Any()).AnyTimes()
	sink.EXPECT().EnqueueResult(gomock.Any()).Times(2)

	cards := deck(1)
	s := newSession(t, study.ModeFlashcard, cards, sink, clock.NewFake(t0))
	require.NoError(t, s.Skip())
	assert.Equal(t, study.StateComplete, s.View().State)

	plan, err := study.BuildSession(cards, study.ModeFlashcard, study.BuildOptions{Now: t0})
	require.NoError(t, err)
	require.NoError(t, s.Restart(plan))

	v := s.View()
	assert.Equal(t, study.StatePresenting, v.State)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, study.Counters{}, v.Counters)
	assert.Nil(t, v.Last)

	require.NoError(t, s.Skip())
	assert.Equal(t, study.StateComplete, s.View().State)
}

func TestSession_CloseStopsTimers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	clk := clock.NewFake(t0)

	s := newSession(t, study.ModeWrite, deck(3), sink, clk)
	assert.Equal(t, 1, clk.Pending())

	s.Close()
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(time.Hour)
	assert.Equal(t, 0, s.View().Index)

	_, err := s.Answer("x")
	assert.ErrorIs(t, err, study.ErrSessionClosed)
	assert.ErrorIs(t, s.Skip(), study.ErrSessionClosed)
}
