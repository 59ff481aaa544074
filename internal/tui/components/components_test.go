package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

func TestSpinnerWraps(t *testing.T) {
	frames := make(map[string]bool)
	for i := 0; i < 20; i++ {
		frames[Spinner(i)] = true
	}
	require.Len(t, frames, len(SpinnerFrames))
	require.Equal(t, Spinner(len(SpinnerFrames)-1), Spinner(-1))
	require.NotEmpty(t, SpinnerAt(time.Now()))
}

func TestRenderSpinnerIncludesLabel(t *testing.T) {
	out := RenderSpinner(styles.ThemeByName("default"), Spinner(0), "loading history")
	require.Contains(t, out, "⠋")
	require.Contains(t, out, "loading history")
}

func TestPulseFromEventsKeepsNewestMessages(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	var evs []*matrix.Event
	for i := 0; i < 12; i++ {
		evs = append(evs, &matrix.Event{ID: "$m", Type: matrix.EventRoomMessage, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	evs = append(evs,
		&matrix.Event{ID: "$r", Type: matrix.EventReaction, Timestamp: base.Add(time.Hour)},
		&matrix.Event{ID: "$gone", Type: matrix.EventRoomMessage, Redacted: true, Timestamp: base.Add(time.Hour)},
	)

	pulse := PulseFromEvents(evs)
	require.Len(t, pulse.RecentEvents, maxRecentEvents)
	require.Equal(t, base.Add(2*time.Second), pulse.RecentEvents[0])
	require.Equal(t, base.Add(11*time.Second), pulse.LastActivity)

	require.Equal(t, ActivityHigh, pulse.Level(base.Add(15*time.Second)))
	require.Equal(t, ActivityMedium, pulse.Level(base.Add(50*time.Second)))
	require.Equal(t, ActivityLow, pulse.Level(base.Add(3*time.Minute)))
	require.Equal(t, ActivityNone, pulse.Level(base.Add(time.Hour)))
	require.Equal(t, ActivityNone, PulseFromEvents(nil).Level(base))

	require.Equal(t, 10, pulse.EventsInWindow(base.Add(30*time.Second), time.Minute))
	require.Equal(t, 0, pulse.EventsInWindow(base.Add(time.Hour), time.Minute))
}

func TestRenderActivityLine(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	pulse := ActivityPulse{RecentEvents: []time.Time{base}, LastActivity: base}
	theme := styles.ThemeByName("default")

	line := RenderActivityLine(theme, pulse, base.Add(time.Second))
	require.Contains(t, line, "●●●●●")
	require.Contains(t, line, "1/min")

	quiet := RenderActivityPulse(theme, pulse, base.Add(time.Hour))
	require.Contains(t, quiet, "○○○○○")
}
