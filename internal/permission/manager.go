// Package permission models the runtime permission collaborator: a grant
// check plus prompt requests whose pending result resolves exactly once.
package permission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/pkg/plugin"
)

// Name identifies a permission.
type Name string

// ReadPhoneState guards telephony reads used for generation classification.
const ReadPhoneState Name = "READ_PHONE_STATE"

// State is the last known grant state of a permission.
type State string

const (
	StateUndetermined State = "undetermined"
	StateGranted      State = "granted"
	StateDenied       State = "denied"
)

// Decision is the terminal outcome of a request.
type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionDenied  Decision = "denied"
)

// Mode controls how requests are answered.
type Mode string

const (
	// ModePrompt leaves requests pending until a client resolves them or
	// the prompt timeout expires.
	ModePrompt Mode = "prompt"
	// ModeGranted treats every permission as granted.
	ModeGranted Mode = "granted"
	// ModeDenied denies every request immediately.
	ModeDenied Mode = "denied"
)

// Event topics published by the manager.
const (
	TopicRequested = "permission.requested"
	TopicResolved  = "permission.resolved"
)

var (
	ErrRequestNotFound = errors.New("permission request not found")
	ErrAlreadyResolved = errors.New("permission request already resolved")
	ErrInvalidMode     = errors.New("invalid permission mode")
)

// maxHistory bounds how many resolved requests are remembered for
// already-resolved detection.
const maxHistory = 128

// Options configures a Manager.
type Options struct {
	Mode          Mode
	PromptTimeout time.Duration
	// Now overrides the clock used for request timestamps.
	Now func() time.Time
}

// ParseMode validates a configured mode string. Empty means ModePrompt.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePrompt:
		return ModePrompt, nil
	case ModeGranted, ModeDenied:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Manager tracks permission state and pending prompt requests.
type Manager struct {
	mu       sync.Mutex
	states   map[Name]State
	requests map[string]*Request
	pending  map[Name]*Request
	history  []string

	mode    Mode
	timeout time.Duration
	now     func() time.Time
	bus     plugin.EventBus
	logger  *zap.Logger
}

// NewManager creates a Manager. bus may be nil.
func NewManager(opts Options, bus plugin.EventBus, logger *zap.Logger) *Manager {
	if opts.Mode == "" {
		opts.Mode = ModePrompt
	}
	if opts.PromptTimeout <= 0 {
		opts.PromptTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		states:   make(map[Name]State),
		requests: make(map[string]*Request),
		pending:  make(map[Name]*Request),
		mode:     opts.Mode,
		timeout:  opts.PromptTimeout,
		now:      opts.Now,
		bus:      bus,
		logger:   logger,
	}
}

// Mode returns the configured mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// Granted reports whether perm is currently granted.
func (m *Manager) Granted(perm Name) bool {
	switch m.mode {
	case ModeGranted:
		return true
	case ModeDenied:
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[perm] == StateGranted
}

// State returns the last known state of perm.
func (m *Manager) State(perm Name) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[perm]; ok {
		return s
	}
	return StateUndetermined
}

// Request files a prompt for perm, or joins the prompt already pending for
// it. Outside prompt mode the request is resolved before it is returned.
func (m *Manager) Request(ctx context.Context, perm Name) *Request {
	m.mu.Lock()
	if req, ok := m.pending[perm]; ok {
		m.mu.Unlock()
		return req
	}

	now := m.now().UTC()
	req := &Request{
		ID:          uuid.NewString(),
		Permission:  perm,
		RequestedAt: now,
		Deadline:    now.Add(m.timeout),
		done:        make(chan struct{}),
	}
	m.requests[req.ID] = req
	m.pending[perm] = req
	m.mu.Unlock()

	m.logger.Info("permission requested",
		zap.String("request_id", req.ID),
		zap.String("permission", string(perm)),
	)
	m.publish(ctx, TopicRequested, req.View())

	switch m.mode {
	case ModeGranted:
		_ = m.settle(ctx, req, DecisionGranted, "mode")
	case ModeDenied:
		_ = m.settle(ctx, req, DecisionDenied, "mode")
	default:
		t := time.AfterFunc(m.timeout, func() {
			_ = m.settle(context.Background(), req, DecisionDenied, "timeout")
		})
		req.mu.Lock()
		req.timer = t
		req.mu.Unlock()
		if _, resolved := req.Decision(); resolved {
			t.Stop()
		}
	}
	return req
}

// Await requests perm if needed and waits for the decision. A ctx that ends
// first stops the wait but leaves the request pending.
func (m *Manager) Await(ctx context.Context, perm Name) (bool, error) {
	if m.Granted(perm) {
		return true, nil
	}
	d, err := m.Request(ctx, perm).Wait(ctx)
	if err != nil {
		return false, err
	}
	return d == DecisionGranted, nil
}

// Resolve answers the request with the given ID. Each request can be
// resolved once. Later calls return ErrAlreadyResolved.
func (m *Manager) Resolve(ctx context.Context, id string, granted bool) error {
	m.mu.Lock()
	req, ok := m.requests[id]
	m.mu.Unlock()
	if !ok {
		return ErrRequestNotFound
	}

	d := DecisionDenied
	if granted {
		d = DecisionGranted
	}
	return m.settle(ctx, req, d, "user")
}

// Get returns a snapshot of a known request.
func (m *Manager) Get(id string) (RequestView, bool) {
	m.mu.Lock()
	req, ok := m.requests[id]
	m.mu.Unlock()
	if !ok {
		return RequestView{}, false
	}
	return req.View(), true
}

// Pending lists unresolved requests, oldest first.
func (m *Manager) Pending() []RequestView {
	m.mu.Lock()
	out := make([]RequestView, 0, len(m.pending))
	for _, req := range m.pending {
		out = append(out, req.View())
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b RequestView) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (m *Manager) settle(ctx context.Context, req *Request, d Decision, reason string) error {
	if !req.settle(d, reason) {
		return ErrAlreadyResolved
	}

	m.mu.Lock()
	if m.pending[req.Permission] == req {
		delete(m.pending, req.Permission)
	}
	if d == DecisionGranted {
		m.states[req.Permission] = StateGranted
	} else {
		m.states[req.Permission] = StateDenied
	}
	m.history = append(m.history, req.ID)
	if len(m.history) > maxHistory {
		delete(m.requests, m.history[0])
		m.history = m.history[1:]
	}
	m.mu.Unlock()

	m.logger.Info("permission resolved",
		zap.String("request_id", req.ID),
		zap.String("permission", string(req.Permission)),
		zap.String("decision", string(d)),
		zap.String("reason", reason),
	)
	m.publish(ctx, TopicResolved, req.View())
	return nil
}

func (m *Manager) publish(ctx context.Context, topic string, view RequestView) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "permission",
		Timestamp: m.now().UTC(),
		Payload:   view,
	})
}
