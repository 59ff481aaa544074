package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/state"
	"github.com/tOgg1/mxview/internal/store"
	"github.com/tOgg1/mxview/internal/timeline"
	"github.com/tOgg1/mxview/internal/tui"
)

var (
	watchInterval time.Duration
	watchExisting bool
	watchAll      bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default: sync.focused_interval)")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "print the loaded history before streaming")
	watchCmd.Flags().BoolVar(&watchAll, "all", false, "include events that are not shown in the timeline")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream new events of the selected room",
	Long: `Follow the selected room and print every event as it is stored.
With --json each event is written as one JSON object per line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}
		cfg := GetConfig()

		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		tl, err := client.Timeline(ctx, roomID, cfg.Timeline.PageSize)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		streamCfg := DefaultStreamConfig()
		if watchInterval > 0 {
			streamCfg.PollInterval = watchInterval
		} else if cfg.Sync.FocusedInterval > 0 {
			streamCfg.PollInterval = cfg.Sync.FocusedInterval
		}
		streamCfg.IncludeExisting = watchExisting
		streamCfg.IncludeHidden = watchAll
		streamCfg.JSON = IsJSONOutput()
		streamCfg.Location = loc

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return NewEventStreamer(tl, cmd.OutOrStdout(), streamCfg).Stream(ctx)
	},
}

// StreamConfig configures event streaming behavior.
type StreamConfig struct {
	// PollInterval is how often the room is checked for new events.
	PollInterval time.Duration

	// IncludeExisting writes the already loaded page before streaming.
	IncludeExisting bool

	// IncludeHidden also writes events the timeline would skip, such as
	// reactions and edits.
	IncludeHidden bool

	// JSON writes one object per line instead of text.
	JSON bool

	// Location is the timezone of text timestamps.
	Location *time.Location
}

// DefaultStreamConfig returns sensible defaults for streaming.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PollInterval: 500 * time.Millisecond,
		Location:     time.Local,
	}
}

// EventStreamer writes the events of one timeline as they arrive.
type EventStreamer struct {
	tl     *store.Timeline
	out    io.Writer
	config StreamConfig
	names  timeline.NameFunc
	prev   *matrix.Event
}

// NewEventStreamer creates a streamer for tl.
func NewEventStreamer(tl *store.Timeline, out io.Writer, config StreamConfig) *EventStreamer {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultStreamConfig().PollInterval
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &EventStreamer{tl: tl, out: out, config: config, names: tui.MemberNames(tl)}
}

// Stream writes events until ctx is cancelled. Cancellation is a graceful
// shutdown and returns nil.
func (s *EventStreamer) Stream(ctx context.Context) error {
	logger := logging.WithRoom(s.tl.RoomID())
	ctx, done := context.WithCancel(ctx)
	defer done()

	incoming := make(chan *matrix.Event, 64)
	cancel := s.tl.Subscribe(func(change matrix.TimelineChange) {
		if change.Kind != matrix.ChangeEvent || change.Event == nil {
			return
		}
		select {
		case incoming <- change.Event:
		case <-ctx.Done():
		}
	})
	defer cancel()

	if s.config.IncludeExisting {
		for _, ev := range s.tl.Events() {
			if err := s.writeEvent(ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}

	poller := state.NewPoller(state.PollerConfig{
		FocusedInterval:    s.config.PollInterval,
		BackgroundInterval: s.config.PollInterval,
	})
	poller.Watch(s.tl)
	poller.Focus(s.tl.RoomID())
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer func() {
		done()
		_ = poller.Stop()
	}()

	logger.Debug().Dur("interval", s.config.PollInterval).Msg("streaming room events")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("event stream stopped")
			return nil
		case ev := <-incoming:
			if err := s.writeEvent(ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

type streamedEvent struct {
	EventID   string          `json:"event_id"`
	RoomID    string          `json:"room_id"`
	Type      string          `json:"type"`
	Sender    string          `json:"sender"`
	Timestamp string          `json:"origin_server_ts"`
	Class     string          `json:"class"`
	Body      string          `json:"body,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

func (s *EventStreamer) writeEvent(ev *matrix.Event) error {
	class := timeline.Classify(ev, s.prev)
	if class == timeline.Skip && !s.config.IncludeHidden {
		return nil
	}
	if class != timeline.Skip {
		s.prev = ev
	}
	text := s.describe(ev, class)

	if s.config.JSON {
		data, err := json.Marshal(streamedEvent{
			EventID:   ev.ID,
			RoomID:    s.tl.RoomID(),
			Type:      string(ev.Type),
			Sender:    ev.Sender,
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
			Class:     class.String(),
			Body:      text,
			Content:   ev.Content,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, string(data))
		return err
	}

	stamp := ev.Timestamp.In(s.config.Location).Format("15:04")
	_, err := fmt.Fprintf(s.out, "%s %s\n", stamp, text)
	return err
}

func (s *EventStreamer) describe(ev *matrix.Event, class timeline.Class) string {
	switch class {
	case timeline.Message:
		if ev.Type == matrix.EventRoomEncrypted {
			return s.names(ev.Sender) + ": (encrypted)"
		}
		body := timeline.ResolveBody(ev, s.tl.EditsOf(ev.ID))
		return s.names(ev.Sender) + ": " + firstLine(body.DisplayBody)
	case timeline.MembershipChange:
		if line, ok := timeline.DescribeMembership(ev, s.names); ok {
			return line.Content
		}
	case timeline.ChannelIntro:
		return s.names(ev.Sender) + " created the room"
	}
	return fmt.Sprintf("[%s] %s", ev.Type, s.names(ev.Sender))
}
