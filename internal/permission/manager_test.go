package permission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/testutil"
)

func newTestManager(t *testing.T, mode Mode, timeout time.Duration) (*Manager, *testutil.RecordingBus) {
	t.Helper()
	bus := testutil.NewRecordingBus()
	clock := testutil.NewClock()
	m := NewManager(Options{Mode: mode, PromptTimeout: timeout, Now: clock.Now}, bus, zap.NewNop())
	return m, bus
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModePrompt},
		{in: "prompt", want: ModePrompt},
		{in: "granted", want: ModeGranted},
		{in: "denied", want: ModeDenied},
		{in: "always", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrantedByMode(t *testing.T) {
	granted, _ := newTestManager(t, ModeGranted, time.Minute)
	assert.True(t, granted.Granted(ReadPhoneState))

	denied, _ := newTestManager(t, ModeDenied, time.Minute)
	assert.False(t, denied.Granted(ReadPhoneState))

	prompt, _ := newTestManager(t, ModePrompt, time.Minute)
	assert.False(t, prompt.Granted(ReadPhoneState))
	assert.Equal(t, StateUndetermined, prompt.State(ReadPhoneState))
}

func TestResolveGrant(t *testing.T) {
	m, bus := newTestManager(t, ModePrompt, time.Minute)
	ctx := context.Background()

	req := m.Request(ctx, ReadPhoneState)
	require.NotEmpty(t, req.ID)
	require.Len(t, m.Pending(), 1)

	require.NoError(t, m.Resolve(ctx, req.ID, true))

	d, err := req.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, d)
	assert.True(t, m.Granted(ReadPhoneState))
	assert.Empty(t, m.Pending())

	events := bus.Events()
	require.Len(t, events, 2)
	assert.Equal(t, TopicRequested, events[0].Topic)
	assert.Equal(t, TopicResolved, events[1].Topic)
	resolved := bus.Payloads(TopicResolved)
	require.Len(t, resolved, 1)
	view, ok := resolved[0].(RequestView)
	require.True(t, ok)
	assert.Equal(t, DecisionGranted, view.Decision)
	assert.Equal(t, "user", view.Reason)
}

func TestResolveExactlyOnce(t *testing.T) {
	m, bus := newTestManager(t, ModePrompt, time.Minute)
	ctx := context.Background()
	req := m.Request(ctx, ReadPhoneState)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(granted bool) {
			defer wg.Done()
			if err := m.Resolve(ctx, req.ID, granted); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyResolved) {
				t.Errorf("Resolve() unexpected error = %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, bus.Count(TopicResolved))
}

func TestResolveUnknownRequest(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	err := m.Resolve(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestJoinsPending(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	ctx := context.Background()

	first := m.Request(ctx, ReadPhoneState)
	second := m.Request(ctx, ReadPhoneState)
	assert.Same(t, first, second)

	require.NoError(t, m.Resolve(ctx, first.ID, false))

	third := m.Request(ctx, ReadPhoneState)
	assert.NotEqual(t, first.ID, third.ID, "a denied permission prompts again")
}

func TestPromptTimeoutDenies(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := m.Request(ctx, ReadPhoneState)
	d, err := req.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, DecisionDenied, d)

	view, ok := m.Get(req.ID)
	require.True(t, ok)
	assert.Equal(t, "timeout", view.Reason)
	assert.ErrorIs(t, m.Resolve(ctx, req.ID, true), ErrAlreadyResolved)
	assert.False(t, m.Granted(ReadPhoneState))
}

func TestAwaitDeniedMode(t *testing.T) {
	m, _ := newTestManager(t, ModeDenied, time.Minute)
	ok, err := m.Await(context.Background(), ReadPhoneState)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, m.Pending())
}

func TestAwaitContextCancelledLeavesRequestPending(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := m.Await(ctx, ReadPhoneState)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)

	pending := m.Pending()
	require.Len(t, pending, 1)
	require.NoError(t, m.Resolve(context.Background(), pending[0].ID, true))
	assert.True(t, m.Granted(ReadPhoneState))
}

func TestRequestTimestampsUseClock(t *testing.T) {
	m, _ := newTestManager(t, ModePrompt, 30*time.Second)
	req := m.Request(context.Background(), ReadPhoneState)

	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, req.RequestedAt.Equal(want))
	assert.True(t, req.Deadline.Equal(want.Add(30*time.Second)))
}
