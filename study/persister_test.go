package study_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/study"
	mock_study "github.com/andrewpaige1/nodebook-study/study/mock"
)

func TestPersister_WritesInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_study.NewMockProgressStore(ctrl)
	core, logs := observer.New(zap.WarnLevel)

	gomock.InOrder(
		store.EXPECT().UpdateCardProgress(gomock.Any(), userID, study.ProgressUpdate{CardID: "a", Correct: true}).Return(nil),
		store.EXPECT().UpdateCardProgress(gomock.Any(), userID, study.ProgressUpdate{CardID: "b"}).Return(errors.New("connection reset")),
		store.EXPECT().SaveSessionResult(gomock.Any(), gomock.Any()).Return(nil),
	)

	p := study.NewPersister(store, zap.New(core), 8, time.Second)
	p.EnqueueProgress(userID, study.ProgressUpdate{CardID: "a", Correct: true})
	p.EnqueueProgress(userID, study.ProgressUpdate{CardID: "b"})
	p.EnqueueResult(study.Summary{SessionID: "s1", UserID: userID})
	p.Close()

	require.Equal(t, 1, logs.FilterMessage("failed to update card progress").Len())

	p.EnqueueProgress(userID, study.ProgressUpdate{CardID: "late"})
	assert.Equal(t, 1, logs.FilterMessage("progress persister closed, dropping update").Len())
}

func TestPersister_FailuresDoNotBlockSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_study.NewMockProgressStore(ctrl)
	store.EXPECT().UpdateCardProgress(gomock.Any(), userID, gomock.Any()).Return(errors.New("db down")).Times(2)
	store.EXPECT().SaveSessionResult(gomock.Any(), gomock.Any()).Return(errors.New("db down")).Times(1)

	p := study.NewPersister(store, zap.NewNop(), 8, time.Second)
	s := newSession(t, study.ModeFlashcard, deck(2), p, clock.NewFake(t0))

	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	assert.Equal(t, study.StateComplete, s.View().State)
	p.Close()
}
