package study_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/study"
	mock_study "github.com/andrewpaige1/nodebook-study/study/mock"
)

func newManager(t *testing.T, clk clock.Clock) *study.Manager {
	t.Helper()
	ctrl := gomock.NewController(t)
	sink := mock_study.NewMockProgressSink(ctrl)
	sink.EXPECT().EnqueueProgress(gomock.Any(), gomock.Any()).AnyTimes()
	sink.EXPECT().EnqueueResult(gomock.Any()).AnyTimes()
	return study.NewManager(sink, clk, zap.NewNop(), study.ManagerOptions{IdleTTL: time.Hour, Seed: 99})
}

func TestManager_StartAndOwnership(t *testing.T) {
	m := newManager(t, clock.NewFake(t0))

	s, err := m.Start(userID, "deck-1", study.ModeQuiz, deck(6), study.BuildOptions{MaxCards: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 5, s.View().Total)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID(), userID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(s.ID(), userID+1)
	assert.ErrorIs(t, err, study.ErrSessionNotFound)
	assert.ErrorIs(t, m.Remove(s.ID(), userID+1), study.ErrSessionNotFound)

	require.NoError(t, m.Remove(s.ID(), userID))
	assert.Equal(t, 0, m.Len())
	assert.ErrorIs(t, s.Skip(), study.ErrSessionClosed)
}

func TestManager_StartInsufficient(t *testing.T) {
	m := newManager(t, clock.NewFake(t0))

	_, err := m.Start(userID, "deck-1", study.ModeQuiz, deck(2), study.BuildOptions{})
	var ice *study.InsufficientCardsError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 4, ice.Need)
	assert.Equal(t, 0, m.Len())
}

func TestManager_Restart(t *testing.T) {
	m := newManager(t, clock.NewFake(t0))

	s, err := m.Start(userID, "deck-1", study.ModeFlashcard, deck(3), study.BuildOptions{PracticeAll: true})
	require.NoError(t, err)
	require.NoError(t, s.Skip())
	require.Equal(t, 1, s.View().Index)

	s2, err := m.Restart(s.ID(), userID, deck(4), study.BuildOptions{})
	require.NoError(t, err)
	v := s2.View()
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 4, v.Total)
	assert.True(t, v.PracticeAll)
}

func TestManager_RestartKeepsSessionAlive(t *testing.T) {
	clk := clock.NewFake(t0)
	m := newManager(t, clk)

	s, err := m.Start(userID, "deck-1", study.ModeFlashcard, deck(3), study.BuildOptions{})
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	_, err = m.Restart(s.ID(), userID, deck(3), study.BuildOptions{})
	require.NoError(t, err)
	assert.True(t, clk.Now().Equal(s.LastActive()))

	clk.Advance(30 * time.Minute)
	assert.Zero(t, m.Sweep())
	_, err = m.Get(s.ID(), userID)
	assert.NoError(t, err)
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	clk := clock.NewFake(t0)
	m := newManager(t, clk)

	idle, err := m.Start(userID, "deck-1", study.ModeWrite, deck(3), study.BuildOptions{})
	require.NoError(t, err)

	clk.Advance(20 * time.Second)
	active, err := m.Start(userID, "deck-2", study.ModeFlashcard, deck(3), study.BuildOptions{})
	require.NoError(t, err)

	clk.Advance(50 * time.Minute)
	require.NoError(t, active.Reveal())

	clk.Advance(15 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(idle.ID(), userID)
	assert.ErrorIs(t, err, study.ErrSessionNotFound)
	_, err = m.Get(active.ID(), userID)
	assert.NoError(t, err)
}
