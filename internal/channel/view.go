// Package channel drives the room view: it projects the live timeline into
// rows and reacts to scroll, pagination and timeline notifications.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
	"github.com/tOgg1/mxview/internal/timeline"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrAlreadyStarted = errors.New("view already started")
)

// ScrollController is the viewport the rows are rendered into.
type ScrollController interface {
	IsScrollable() bool
	ReachBottom()
	TryRestoringScroll()
}

// Commands are the network commands the view issues.
type Commands interface {
	matrix.ReactionCommands
	matrix.ReceiptSender
}

// Config wires a View to its collaborators.
type Config struct {
	Session  matrix.Session
	Timeline matrix.Timeline
	Room     matrix.Room
	Scroll   ScrollController
	Bus      events.Bus
	Commands Commands
	Confirm  prompt.ConfirmFunc

	GroupWindow  time.Duration
	Placeholders int
	Location     *time.Location
	Names        timeline.NameFunc

	// OnChange is called whenever the rows need to be re-rendered.
	OnChange func()
}

// View is the controller behind one open room.
type View struct {
	cfg    Config
	logger zerolog.Logger

	reachedStart atomic.Bool
	atBottom     atomic.Bool
	loading      atomic.Bool

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	subID       string
	unsubscribe func()
}

// New validates cfg and returns an idle View. Call Start to attach it.
func New(cfg Config) (*View, error) {
	switch {
	case cfg.Timeline == nil:
		return nil, fmt.Errorf("timeline is required")
	case cfg.Room == nil:
		return nil, fmt.Errorf("room is required")
	case cfg.Scroll == nil:
		return nil, fmt.Errorf("scroll controller is required")
	case cfg.Bus == nil:
		return nil, fmt.Errorf("signal bus is required")
	case cfg.Commands == nil:
		return nil, fmt.Errorf("commands are required")
	case cfg.Session.UserID == "":
		return nil, fmt.Errorf("session user id is required")
	}
	if cfg.Confirm == nil {
		cfg.Confirm = prompt.Deny
	}
	v := &View{
		cfg:    cfg,
		logger: logging.WithRoom(cfg.Timeline.RoomID()).With().Str("component", "channel-view").Logger(),
	}
	v.atBottom.Store(true)
	return v, nil
}

// RoomID returns the room this view shows.
func (v *View) RoomID() string {
	return v.cfg.Timeline.RoomID()
}

// Start subscribes to the signal bus and the timeline, scrolls to the
// bottom and loads history until the viewport can scroll.
func (v *View) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.cancel != nil {
		v.mu.Unlock()
		return ErrAlreadyStarted
	}
	v.ctx, v.cancel = context.WithCancel(ctx)
	v.subID = "channel-view-" + uuid.NewString()

	filter := events.Filter{
		Types:  []events.SignalType{events.SignalReachedTop, events.SignalToggleReachedBottom},
		RoomID: v.RoomID(),
	}
	if err := v.cfg.Bus.Subscribe(v.subID, filter, v.onSignal); err != nil {
		v.cancel()
		v.cancel = nil
		v.mu.Unlock()
		return fmt.Errorf("subscribe to signals: %w", err)
	}
	v.unsubscribe = v.cfg.Timeline.Subscribe(v.onTimelineChange)
	v.mu.Unlock()

	v.reachedStart.Store(false)
	v.atBottom.Store(true)
	v.logger.Debug().Msg("room view started")

	v.trySendingReadReceipt(v.ctx)
	v.cfg.Scroll.ReachBottom()
	v.autoLoad(v.ctx)
	return nil
}

// Stop detaches the view. It is safe to call more than once.
func (v *View) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel == nil {
		return
	}
	v.cancel()
	v.cancel = nil
	_ = v.cfg.Bus.Unsubscribe(v.subID)
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.logger.Debug().Msg("room view stopped")
}

// ReachedStart reports whether the beginning of history has been loaded.
func (v *View) ReachedStart() bool {
	return v.reachedStart.Load()
}

// AtBottom reports the last known scroll position.
func (v *View) AtBottom() bool {
	return v.atBottom.Load()
}

// Render projects the current timeline into rows.
func (v *View) Render() []timeline.Item {
	return timeline.Project(v.cfg.Timeline, timeline.Options{
		ViewerID:     v.cfg.Session.UserID,
		RoomName:     v.cfg.Room.Name(),
		RoomTopic:    v.cfg.Room.Topic(),
		ReachedStart: v.reachedStart.Load(),
		GroupWindow:  v.cfg.GroupWindow,
		Placeholders: v.cfg.Placeholders,
		Location:     v.cfg.Location,
		Names:        v.cfg.Names,
	})
}

func (v *View) onSignal(sig *events.Signal) {
	ctx := v.context()
	switch sig.Type {
	case events.SignalReachedTop:
		v.onReachedTop(ctx)
	case events.SignalToggleReachedBottom:
		v.atBottom.Store(sig.AtBottom)
		if sig.AtBottom {
			v.trySendingReadReceipt(ctx)
		}
	}
}

func (v *View) onReachedTop(ctx context.Context) {
	if v.cfg.Timeline.IsPaginating() || v.reachedStart.Load() {
		return
	}
	v.paginate(ctx)
}

func (v *View) onTimelineChange(change matrix.TimelineChange) {
	switch change.Kind {
	case matrix.ChangePaginated:
		if !change.CanPaginateMore {
			v.reachedStart.Store(true)
		}
		v.requestRender()
	default:
		atBottom := v.atBottom.Load()
		if atBottom {
			v.trySendingReadReceipt(v.context())
		}
		v.requestRender()
		if atBottom {
			v.cfg.Scroll.ReachBottom()
		}
	}
}

// paginate loads one page of older history and handles its completion.
func (v *View) paginate(ctx context.Context) bool {
	if !v.loading.CAS(false, true) {
		return false
	}
	defer v.loading.Store(false)

	more, err := v.cfg.Timeline.PaginateBack(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Msg("back-pagination failed")
		return false
	}
	if !more {
		v.reachedStart.Store(true)
		v.requestRender()
		return false
	}
	v.requestRender()
	v.cfg.Scroll.TryRestoringScroll()
	return true
}

// autoLoad keeps paginating while the rows do not fill the viewport.
func (v *View) autoLoad(ctx context.Context) {
	for !v.reachedStart.Load() && !v.cfg.Scroll.IsScrollable() {
		if ctx.Err() != nil || v.cfg.Timeline.IsPaginating() {
			return
		}
		if !v.paginate(ctx) {
			return
		}
	}
}

// LoadOlder is the explicit form of a reached-top signal.
func (v *View) LoadOlder(ctx context.Context) {
	v.onReachedTop(ctx)
	v.autoLoad(ctx)
}

func (v *View) trySendingReadReceipt(ctx context.Context) {
	if !v.cfg.Room.Notifications().HasUnread() {
		return
	}
	evs := v.cfg.Timeline.Events()
	if len(evs) == 0 {
		return
	}
	last := evs[len(evs)-1]
	if err := v.cfg.Commands.SendReadReceipt(ctx, last); err != nil {
		v.logger.Warn().Err(err).Str("event_id", last.ID).Msg("read receipt failed")
		return
	}
	v.cfg.Bus.Emit(ctx, &events.Signal{Type: events.SignalUnreadChanged, RoomID: v.RoomID(), Unread: false})
}

func (v *View) requestRender() {
	if v.cfg.OnChange != nil {
		v.cfg.OnChange()
	}
}

func (v *View) context() context.Context {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx == nil {
		return context.Background()
	}
	return v.ctx
}

func (v *View) findEvent(eventID string) *matrix.Event {
	for _, ev := range v.cfg.Timeline.Events() {
		if ev != nil && ev.ID == eventID {
			return ev
		}
	}
	return nil
}
