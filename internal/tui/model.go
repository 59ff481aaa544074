package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/tOgg1/mxview/internal/channel"
	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/rooms"
	"github.com/tOgg1/mxview/internal/state"
	"github.com/tOgg1/mxview/internal/store"
	"github.com/tOgg1/mxview/internal/tui/components"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

const (
	defaultRoomsInterval = 5 * time.Second
	quickReaction        = "👍"
	chromeLines          = 2
)

// Config wires the terminal UI to the sandbox store.
type Config struct {
	Client *store.Client
	Bus    events.Bus
	// Poller is optional; without it timelines only change on local actions.
	Poller *state.Poller

	Theme          string
	ShowTimestamps bool
	Compact        bool
	GroupWindow    time.Duration
	Placeholders   int
	PageSize       int
	Location       *time.Location
	RoomsInterval  time.Duration
	InitialRoom    string
}

type pane int

const (
	paneTimeline pane = iota
	paneRooms
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeCompose
	modeReact
	modeConfirmRedact
)

type redrawMsg struct{}

type roomsChangedMsg struct{}

type roomsTickMsg struct{}

// Model is the bubbletea model of the room browser.
type Model struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	theme  styles.Theme

	width  int
	height int
	focus  pane

	entries []rooms.Entry
	roomIdx int
	unwatch func()
	replyID string

	timelines map[string]*store.Timeline
	viewport  *Viewport

	// renderMu guards the fields read by refresh, which also runs from
	// timeline callbacks on the poller goroutine.
	renderMu sync.Mutex
	roomID   string
	room     *store.Room
	tl       *store.Timeline
	view     *channel.View
	renderer Renderer
	selected string
	replyTo  *events.ReplyRequest

	atBottom      bool
	mode          inputMode
	input         []rune
	pendingRedact string
	approved      atomic.Bool
	status        string

	dirty atomic.Bool
	send  func(tea.Msg)
}

// NewModel loads the room list and opens the initial room.
func NewModel(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Client == nil {
		return nil, errors.New("store client is required")
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewInMemoryBus()
	}
	if cfg.RoomsInterval <= 0 {
		cfg.RoomsInterval = defaultRoomsInterval
	}
	theme := styles.ThemeByName(cfg.Theme)
	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.Component("tui"),
		theme:     theme,
		timelines: make(map[string]*store.Timeline),
		viewport:  NewViewport(0),
		atBottom:  true,
		renderer: Renderer{
			Styles:         styles.NewMessageStyles(theme),
			Session:        cfg.Client.Session(),
			Location:       cfg.Location,
			ShowTimestamps: cfg.ShowTimestamps,
			Compact:        cfg.Compact,
		},
	}

	watchID := "tui-rooms-" + uuid.NewString()
	unwatch, err := rooms.WatchList(cfg.Bus, watchID, func(string) { m.post(roomsChangedMsg{}) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch room list: %w", err)
	}
	m.unwatch = unwatch

	m.replyID = "tui-composer-" + uuid.NewString()
	err = cfg.Bus.Subscribe(m.replyID, events.Filter{Types: []events.SignalType{events.SignalReplyRequested}}, m.onReplyRequested)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("subscribe to replies: %w", err)
	}

	if err := m.loadRooms(); err != nil {
		m.Close()
		return nil, err
	}
	initial := cfg.InitialRoom
	if initial == "" && len(m.entries) > 0 {
		initial = m.entries[0].RoomID
	}
	if initial != "" {
		if err := m.openRoom(initial); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// Run starts the interactive UI and blocks until it exits.
func Run(ctx context.Context, cfg Config) error {
	m, err := NewModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send = p.Send

	if cfg.Poller != nil && !cfg.Poller.IsRunning() {
		if err := cfg.Poller.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer func() { _ = cfg.Poller.Stop() }()
	}

	_, err = p.Run()
	return err
}

// Close detaches every subscription. It is safe to call more than once.
func (m *Model) Close() {
	m.renderMu.Lock()
	view := m.view
	m.view = nil
	m.renderMu.Unlock()
	if view != nil {
		view.Stop()
	}
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	if m.replyID != "" {
		_ = m.cfg.Bus.Unsubscribe(m.replyID)
		m.replyID = ""
	}
	if m.cfg.Poller != nil {
		for id := range m.timelines {
			m.cfg.Poller.Unwatch(id)
		}
	}
	m.cancel()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.roomsTick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.SetHeight(m.timelineHeight())
		m.refresh()
		if view := m.currentView(); view != nil && !m.viewport.IsScrollable() {
			view.LoadOlder(m.ctx)
		}
		return m, nil
	case redrawMsg:
		m.dirty.Store(false)
		return m, nil
	case roomsChangedMsg:
		m.reloadRooms()
		return m, nil
	case roomsTickMsg:
		m.reloadRooms()
		return m, m.roomsTick()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	switch m.mode {
	case modeCompose:
		m.handleComposeKey(msg)
		return nil
	case modeReact:
		m.handleReactKey(msg)
		return nil
	case modeConfirmRedact:
		m.handleConfirmKey(msg)
		return nil
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "tab":
		if m.focus == paneRooms {
			m.focus = paneTimeline
		} else {
			m.focus = paneRooms
		}
		return nil
	}
	if m.focus == paneRooms {
		m.handleRoomsKey(msg)
		return nil
	}
	m.handleTimelineKey(msg)
	return nil
}

func (m *Model) handleRoomsKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		if m.roomIdx > 0 {
			m.roomIdx--
		}
	case "down", "j":
		if m.roomIdx < len(m.entries)-1 {
			m.roomIdx++
		}
	case "enter":
		if m.roomIdx < len(m.entries) {
			if err := m.openRoom(m.entries[m.roomIdx].RoomID); err != nil {
				m.setError(err)
				return
			}
			m.focus = paneTimeline
		}
	}
}

func (m *Model) handleTimelineKey(msg tea.KeyMsg) {
	page := m.timelineHeight() - 1
	if page < 1 {
		page = 1
	}
	switch msg.String() {
	case "up", "k":
		m.scroll(-1)
	case "down", "j":
		m.scroll(1)
	case "pgup", "ctrl+u":
		m.scroll(-page)
	case "pgdown", "ctrl+d":
		m.scroll(page)
	case "home", "g":
		m.scroll(-len(m.viewport.Content().Lines))
	case "end", "G":
		m.scroll(len(m.viewport.Content().Lines))
	case "[":
		m.moveSelection(-1)
	case "]":
		m.moveSelection(1)
	case "esc":
		m.setSelected("")
	case "+":
		m.toggleReaction(quickReaction)
	case "e":
		if m.selectedID() != "" {
			m.mode, m.input = modeReact, nil
		}
	case "r":
		m.requestReply()
	case "c":
		m.mode, m.input = modeCompose, nil
	case "d":
		m.armRedaction()
	case "R":
		m.markRead()
	}
}

func (m *Model) handleComposeKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode, m.input = modeNormal, nil
		m.setReply(nil)
	case tea.KeyEnter:
		m.sendComposed()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
}

func (m *Model) handleReactKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode, m.input = modeNormal, nil
	case tea.KeyEnter:
		key := strings.TrimSpace(string(m.input))
		m.mode, m.input = modeNormal, nil
		view, id := m.currentView(), m.selectedID()
		if view == nil {
			return
		}
		if err := view.PickReaction(m.ctx, id, key); err != nil {
			m.setError(err)
		}
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) {
	id := m.pendingRedact
	m.mode, m.pendingRedact = modeNormal, ""
	if msg.String() != "y" && msg.String() != "Y" {
		m.status = "delete cancelled"
		return
	}
	view := m.currentView()
	if view == nil {
		return
	}
	m.approved.Store(true)
	sent, err := view.Redact(m.ctx, id)
	m.approved.Store(false)
	if err != nil {
		m.setError(err)
		return
	}
	if sent {
		m.status = "message deleted"
		m.pollNow()
	}
}

// confirm approves exactly the redaction the user accepted with "y".
func (m *Model) confirm(context.Context, string, string) bool {
	return m.approved.CAS(true, false)
}

func (m *Model) scroll(delta int) {
	atTop, atBottom := m.viewport.Scroll(delta)
	roomID := m.currentRoomID()
	if roomID == "" {
		return
	}
	if atTop && delta < 0 {
		m.cfg.Bus.Emit(m.ctx, &events.Signal{Type: events.SignalReachedTop, RoomID: roomID})
	}
	if atBottom != m.atBottom {
		m.atBottom = atBottom
		m.cfg.Bus.Emit(m.ctx, &events.Signal{Type: events.SignalToggleReachedBottom, RoomID: roomID, AtBottom: atBottom})
	}
}

func (m *Model) moveSelection(step int) {
	anchors := m.viewport.Content().Anchors
	if len(anchors) == 0 {
		return
	}
	current := m.selectedID()
	idx := -1
	for i, a := range anchors {
		if a.EventID == current {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && step < 0:
		idx = len(anchors) - 1
	case idx < 0:
		idx = 0
	default:
		idx += step
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(anchors) {
		idx = len(anchors) - 1
	}
	m.setSelected(anchors[idx].EventID)
	m.viewport.EnsureVisible(anchors[idx].Line)
}

func (m *Model) toggleReaction(key string) {
	view, id := m.currentView(), m.selectedID()
	if view == nil || id == "" {
		return
	}
	action, err := view.ToggleReaction(m.ctx, id, key)
	if err != nil {
		m.setError(err)
		return
	}
	m.status = fmt.Sprintf("reaction %s: %s", key, action.Kind)
	m.pollNow()
}

func (m *Model) requestReply() {
	view, id := m.currentView(), m.selectedID()
	if view == nil || id == "" {
		return
	}
	if _, err := view.RequestReply(m.ctx, id); err != nil {
		m.setError(err)
		return
	}
	m.mode, m.input = modeCompose, nil
}

func (m *Model) onReplyRequested(sig *events.Signal) {
	if sig.Reply == nil || sig.RoomID != m.currentRoomID() {
		return
	}
	m.setReply(sig.Reply)
}

func (m *Model) armRedaction() {
	view, id := m.currentView(), m.selectedID()
	if view == nil || id == "" {
		return
	}
	if !view.CanRedact(m.findEvent(id)) {
		m.setError(fmt.Errorf("delete message: %w", matrix.ErrNotPermitted))
		return
	}
	m.mode, m.pendingRedact = modeConfirmRedact, id
}

func (m *Model) sendComposed() {
	body := strings.TrimSpace(string(m.input))
	roomID := m.currentRoomID()
	m.mode, m.input = modeNormal, nil
	if body == "" || roomID == "" {
		m.setReply(nil)
		return
	}

	var parent *matrix.Event
	m.renderMu.Lock()
	if m.replyTo != nil {
		parent = m.findEventLocked(m.replyTo.EventID)
	}
	m.renderMu.Unlock()
	m.setReply(nil)

	if _, err := m.cfg.Client.SendText(m.ctx, roomID, body, parent); err != nil {
		m.setError(err)
		return
	}
	m.status = "sent"
	m.pollNow()
}

func (m *Model) markRead() {
	roomID := m.currentRoomID()
	if roomID == "" {
		return
	}
	if err := m.cfg.Client.MarkAsRead(m.ctx, roomID); err != nil {
		m.setError(err)
		return
	}
	m.cfg.Bus.Emit(m.ctx, &events.Signal{Type: events.SignalUnreadChanged, RoomID: roomID})
	m.status = "marked as read"
}

// openRoom swaps the room view to roomID, reusing its timeline when it was
// opened before.
func (m *Model) openRoom(roomID string) error {
	room, err := m.cfg.Client.Room(m.ctx, roomID)
	if err != nil {
		return fmt.Errorf("open room %s: %w", roomID, err)
	}
	tl, ok := m.timelines[roomID]
	if !ok {
		tl, err = m.cfg.Client.Timeline(m.ctx, roomID, m.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("open timeline %s: %w", roomID, err)
		}
		m.timelines[roomID] = tl
		if m.cfg.Poller != nil {
			m.cfg.Poller.Watch(tl)
		}
	}

	names := MemberNames(tl)
	view, err := channel.New(channel.Config{
		Session:      m.cfg.Client.Session(),
		Timeline:     tl,
		Room:         room,
		Scroll:       m.viewport,
		Bus:          m.cfg.Bus,
		Commands:     m.cfg.Client,
		Confirm:      m.confirm,
		GroupWindow:  m.cfg.GroupWindow,
		Placeholders: m.cfg.Placeholders,
		Location:     m.cfg.Location,
		Names:        names,
		OnChange:     m.onViewChange,
	})
	if err != nil {
		return err
	}

	m.renderMu.Lock()
	old := m.view
	m.view, m.room, m.tl, m.roomID = view, room, tl, roomID
	m.renderer.Names = names
	m.selected, m.replyTo = "", nil
	m.renderMu.Unlock()
	if old != nil {
		old.Stop()
	}

	for i, e := range m.entries {
		if e.RoomID == roomID {
			m.roomIdx = i
		}
	}
	m.atBottom = true
	m.refresh()
	if m.cfg.Poller != nil {
		m.cfg.Poller.Focus(roomID)
	}
	m.logger.Debug().Str("room_id", roomID).Msg("room opened")
	return view.Start(m.ctx)
}

func (m *Model) loadRooms() error {
	list, err := m.cfg.Client.Rooms(m.ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	joined := make([]matrix.Room, 0, len(list))
	for _, r := range list {
		joined = append(joined, r)
	}
	m.entries = rooms.BuildList(joined, m.cfg.Client.Session())
	if m.roomIdx >= len(m.entries) {
		m.roomIdx = 0
	}
	return nil
}

func (m *Model) reloadRooms() {
	if err := m.loadRooms(); err != nil {
		m.logger.Warn().Err(err).Msg("room list refresh failed")
	}
}

func (m *Model) roomsTick() tea.Cmd {
	return tea.Tick(m.cfg.RoomsInterval, func(time.Time) tea.Msg { return roomsTickMsg{} })
}

// onViewChange re-renders the rows and schedules a repaint.
func (m *Model) onViewChange() {
	m.refresh()
	if m.dirty.CAS(false, true) {
		m.post(redrawMsg{})
	}
}

// post delivers msg to the running program without blocking the caller,
// which may be the program's own update loop.
func (m *Model) post(msg tea.Msg) {
	if m.send == nil {
		return
	}
	go m.send(msg)
}

func (m *Model) refresh() {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	if m.view == nil {
		return
	}
	m.viewport.SetContent(m.renderer.Render(m.view.Render(), m.timelineWidth(), m.selected))
}

func (m *Model) pollNow() {
	roomID := m.currentRoomID()
	if m.cfg.Poller != nil {
		if err := m.cfg.Poller.PollNow(roomID); err == nil {
			return
		}
	}
	m.renderMu.Lock()
	tl := m.tl
	m.renderMu.Unlock()
	if tl == nil {
		return
	}
	if _, err := tl.Refresh(m.ctx); err != nil {
		m.logger.Warn().Err(err).Msg("timeline refresh failed")
	}
}

func (m *Model) setSelected(id string) {
	m.renderMu.Lock()
	m.selected = id
	m.renderMu.Unlock()
	m.refresh()
}

func (m *Model) setReply(req *events.ReplyRequest) {
	m.renderMu.Lock()
	m.replyTo = req
	m.renderMu.Unlock()
}

func (m *Model) setError(err error) {
	m.status = "error: " + err.Error()
	m.logger.Warn().Err(err).Msg("action failed")
}

func (m *Model) selectedID() string {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	return m.selected
}

func (m *Model) currentView() *channel.View {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	return m.view
}

func (m *Model) currentRoomID() string {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	return m.roomID
}

func (m *Model) findEvent(id string) *matrix.Event {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	return m.findEventLocked(id)
}

func (m *Model) findEventLocked(id string) *matrix.Event {
	if m.tl == nil {
		return nil
	}
	for _, ev := range m.tl.Events() {
		if ev != nil && ev.ID == id {
			return ev
		}
	}
	return nil
}

func (m *Model) timelineWidth() int {
	cols := styles.ComputeColumnWidths(m.width)
	if w := cols.Timeline - 2 - 2*styles.LayoutInnerPadding; w > 0 {
		return w
	}
	return 80
}

func (m *Model) timelineHeight() int {
	if h := m.height - 2 - chromeLines; h > 0 {
		return h
	}
	return 1
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	cols := styles.ComputeColumnWidths(m.width)
	height := m.timelineHeight()

	m.renderMu.Lock()
	room, tl, replyTo := m.room, m.tl, m.replyTo
	m.renderMu.Unlock()

	header := m.theme.Accent().Bold(true).Render("mxview")
	if room != nil {
		header += "  " + lipgloss.NewStyle().Bold(true).Render(rooms.ParseName(room.Name()).Display())
		if topic := strings.TrimSpace(room.Topic()); topic != "" {
			header += "  " + m.theme.Muted().Render(topic)
		}
	}
	if tl != nil {
		now := time.Now()
		header += "  " + components.RenderActivityLine(m.theme, components.PulseFromEvents(tl.Events()), now)
		if tl.IsPaginating() {
			header += "  " + components.RenderSpinner(m.theme, components.SpinnerAt(now), "loading history")
		}
	}

	body := strings.Join(m.viewport.Visible(), "\n")
	timelinePane := styles.PanelStyle(m.theme, m.focus == paneTimeline).
		Width(cols.Timeline - 2).
		Height(height).
		Render(body)

	panes := timelinePane
	if cols.Rooms > 0 {
		roomsPane := styles.PanelStyle(m.theme, m.focus == paneRooms).
			Width(cols.Rooms - 2).
			Height(height).
			Render(renderRoomList(m.theme, m.entries, m.roomIdx, m.currentRoomID(), cols.Rooms-2-2*styles.LayoutInnerPadding, height))
		panes = lipgloss.JoinHorizontal(lipgloss.Top, roomsPane, strings.Repeat(" ", styles.LayoutGap), timelinePane)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, m.footer(replyTo))
}

func (m *Model) footer(replyTo *events.ReplyRequest) string {
	muted := m.theme.Muted()
	switch m.mode {
	case modeCompose:
		prefix := "message> "
		if replyTo != nil {
			prefix = fmt.Sprintf("reply to %s> ", matrix.Localpart(replyTo.SenderID))
		}
		return prefix + string(m.input) + "█"
	case modeReact:
		return "react with> " + string(m.input) + "█"
	case modeConfirmRedact:
		return "Delete message? Are you sure you want to delete this message? [y/N]"
	}
	if m.status != "" {
		return muted.Render(m.status)
	}
	return muted.Render("tab panes · [ ] select · + react · e pick · r reply · c compose · d delete · R read · q quit")
}
