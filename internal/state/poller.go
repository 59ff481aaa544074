// Package state keeps open room timelines in step with the sandbox store by
// polling it for new events.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/mxview/internal/logging"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
	ErrUnknownRoom          = errors.New("room not watched")
)

// Refresher is a timeline that can pull newly stored events.
type Refresher interface {
	RoomID() string
	Refresh(ctx context.Context) (int, error)
}

// PollerConfig contains configuration for the timeline poller.
type PollerConfig struct {
	// FocusedInterval is how often to poll the room on screen.
	// Default: 500ms
	FocusedInterval time.Duration

	// BackgroundInterval is how often to poll every other watched room.
	// Default: 5s
	BackgroundInterval time.Duration

	// MaxConcurrentPolls limits concurrent refreshes.
	// Default: 4
	MaxConcurrentPolls int
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		FocusedInterval:    500 * time.Millisecond,
		BackgroundInterval: 5 * time.Second,
		MaxConcurrentPolls: 4,
	}
}

// roomPollState tracks polling state for a watched timeline.
type roomPollState struct {
	timeline     Refresher
	lastPolledAt time.Time
	polling      bool
}

// Poller refreshes watched timelines periodically.
type Poller struct {
	config PollerConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pollSem chan struct{}
	rooms   map[string]*roomPollState
	focused string
}

// NewPoller creates a new Poller.
func NewPoller(config PollerConfig) *Poller {
	if config.FocusedInterval <= 0 {
		config.FocusedInterval = DefaultPollerConfig().FocusedInterval
	}
	if config.BackgroundInterval <= 0 {
		config.BackgroundInterval = DefaultPollerConfig().BackgroundInterval
	}
	if config.MaxConcurrentPolls <= 0 {
		config.MaxConcurrentPolls = DefaultPollerConfig().MaxConcurrentPolls
	}

	return &Poller{
		config:  config,
		logger:  logging.Component("timeline-poller"),
		pollSem: make(chan struct{}, config.MaxConcurrentPolls),
		rooms:   make(map[string]*roomPollState),
	}
}

// Watch starts polling tl. Watching a room again replaces its timeline.
func (p *Poller) Watch(tl Refresher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms[tl.RoomID()] = &roomPollState{timeline: tl}
}

// Unwatch stops polling a room.
func (p *Poller) Unwatch(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, roomID)
	if p.focused == roomID {
		p.focused = ""
	}
}

// Focus marks roomID as the room on screen.
func (p *Poller) Focus(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = roomID
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Info().
		Dur("focused_interval", p.config.FocusedInterval).
		Dur("background_interval", p.config.BackgroundInterval).
		Int("max_concurrent", p.config.MaxConcurrentPolls).
		Msg("timeline poller starting")

	p.wg.Add(1)
	go p.runLoop()

	return nil
}

// Stop halts the polling loop and waits for in-flight refreshes.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}

	p.logger.Info().Msg("timeline poller stopping")
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("timeline poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Poller) runLoop() {
	defer p.wg.Done()

	// The focused interval is the shortest, so it drives the ticker.
	ticker := time.NewTicker(p.config.FocusedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollTick(time.Now())
		}
	}
}

func (p *Poller) pollTick(now time.Time) {
	p.mu.RLock()
	due := make([]string, 0, len(p.rooms))
	for roomID, st := range p.rooms {
		if p.shouldPoll(roomID, st, now) {
			due = append(due, roomID)
		}
	}
	p.mu.RUnlock()

	for _, roomID := range due {
		p.pollRoom(roomID)
	}
}

// shouldPoll decides whether a room is due. Caller holds p.mu.
func (p *Poller) shouldPoll(roomID string, st *roomPollState, now time.Time) bool {
	if st.polling {
		return false
	}
	if st.lastPolledAt.IsZero() {
		return true
	}
	interval := p.config.BackgroundInterval
	if roomID == p.focused {
		interval = p.config.FocusedInterval
	}
	return now.Sub(st.lastPolledAt) >= interval
}

func (p *Poller) pollRoom(roomID string) {
	select {
	case p.pollSem <- struct{}{}:
	default:
		// Max concurrent polls reached; the room is retried next tick.
		return
	}

	p.mu.Lock()
	st, ok := p.rooms[roomID]
	if !ok || st.polling {
		p.mu.Unlock()
		<-p.pollSem
		return
	}
	st.polling = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.pollSem }()

		p.doPoll(roomID, st)
	}()
}

func (p *Poller) doPoll(roomID string, st *roomPollState) {
	n, err := st.timeline.Refresh(p.ctx)

	p.mu.Lock()
	st.polling = false
	st.lastPolledAt = time.Now()
	p.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warn().Err(err).Str("room_id", roomID).Msg("timeline refresh failed")
		return
	}
	if n > 0 {
		p.logger.Debug().Str("room_id", roomID).Int("events", n).Msg("timeline refreshed")
	}
}

// PollNow triggers an immediate refresh of a watched room.
func (p *Poller) PollNow(roomID string) error {
	p.mu.RLock()
	running := p.running
	_, watched := p.rooms[roomID]
	p.mu.RUnlock()

	if !running {
		return ErrPollerNotRunning
	}
	if !watched {
		return ErrUnknownRoom
	}

	p.pollRoom(roomID)
	return nil
}

// GetLastPollTime returns when a room was last refreshed.
func (p *Poller) GetLastPollTime(roomID string) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st, exists := p.rooms[roomID]
	if !exists || st.lastPolledAt.IsZero() {
		return time.Time{}, false
	}
	return st.lastPolledAt, true
}
