package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, persona string) (*model.RunState, error) {
	args := m.Called(ctx, persona)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunState), args.Error(1)
}

func TestRun_Anonymous(t *testing.T) {
	r := &mockRunner{}
	s := New("", r, 10)

	_, err := s.Run(context.Background(), "CFOs")

	assert.ErrorIs(t, err, ErrAnonymous)
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRun_RecordsHistory(t *testing.T) {
	r := &mockRunner{}
	done := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	r.On("Run", mock.Anything, "CFOs").Return(&model.RunState{
		Persona:     "CFOs",
		Status:      model.RunStatusSucceeded,
		Results:     model.ResultSet{{Email: "a@x.com"}},
		CompletedAt: done,
	}, nil)
	s := New("alice", r, 10)

	state, err := s.Run(context.Background(), "CFOs")

	require.NoError(t, err)
	assert.Equal(t, "alice", state.User)
	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, "CFOs", h[0].Persona)
	assert.Equal(t, 1, h[0].ResultCount)
	assert.Equal(t, done, h[0].Timestamp)
	assert.False(t, s.Running())
}

func TestRun_FailedRunNotRecorded(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(&model.RunState{Status: model.RunStatusFailed}, errors.New("boom"))
	s := New("alice", r, 10)

	state, err := s.Run(context.Background(), "CFOs")

	require.Error(t, err)
	require.NotNil(t, state)
	assert.Empty(t, s.History())
}

func TestRun_NoResultsIsRecorded(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(&model.RunState{Persona: "CFOs", Status: model.RunStatusNoResults}, nil)
	s := New("alice", r, 10)

	_, err := s.Run(context.Background(), "CFOs")

	require.NoError(t, err)
	require.Len(t, s.History(), 1)
	assert.Equal(t, 0, s.History()[0].ResultCount)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	r := &mockRunner{}
	started := make(chan struct{})
	release := make(chan struct{})
	r.On("Run", mock.Anything, "first").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&model.RunState{Status: model.RunStatusNoResults}, nil)
	s := New("alice", r, 10)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), "first")
		errCh <- err
	}()
	<-started

	assert.True(t, s.Running())
	_, err := s.Run(context.Background(), "second")
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-errCh)
	assert.False(t, s.Running())
	r.AssertNotCalled(t, "Run", mock.Anything, "second")
}

func TestRun_HistoryBounded(t *testing.T) {
	r := &mockRunner{}
	s := New("alice", r, 10)
	for i := 1; i <= 11; i++ {
		p := fmt.Sprintf("persona %d", i)
		r.On("Run", mock.Anything, p).Return(&model.RunState{Persona: p, Status: model.RunStatusSucceeded}, nil).Once()
		_, err := s.Run(context.Background(), p)
		require.NoError(t, err)
	}

	h := s.History()
	require.Len(t, h, 10)
	assert.Equal(t, "persona 11", h[0].Persona)
	assert.Equal(t, "persona 2", h[9].Persona)
}

func TestManager_Get(t *testing.T) {
	m := NewManager(&mockRunner{}, 10)

	_, err := m.Get("")
	assert.ErrorIs(t, err, ErrAnonymous)

	a1, err := m.Get("alice")
	require.NoError(t, err)
	a2, err := m.Get("alice")
	require.NoError(t, err)
	b, err := m.Get("bob")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, "bob", b.User())
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", mock.Anything, "CFOs").Return(&model.RunState{Persona: "CFOs", Status: model.RunStatusSucceeded}, nil)
	m := NewManager(r, 10)

	a, _ := m.Get("alice")
	b, _ := m.Get("bob")
	_, err := a.Run(context.Background(), "CFOs")
	require.NoError(t, err)

	assert.Len(t, a.History(), 1)
	assert.Empty(t, b.History())
}
