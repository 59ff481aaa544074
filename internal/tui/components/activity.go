// Package components provides small reusable TUI widgets.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

// ActivityLevel represents the intensity of recent room traffic.
type ActivityLevel int

const (
	ActivityNone   ActivityLevel = iota // nothing in the last 5 minutes
	ActivityLow                         // something in the last 5 minutes
	ActivityMedium                      // something in the last minute
	ActivityHigh                        // something in the last 10 seconds
)

const maxRecentEvents = 10

// ActivityPulse summarises when the latest messages of a room arrived.
type ActivityPulse struct {
	// RecentEvents holds the timestamps of the newest messages, oldest first.
	RecentEvents []time.Time
	// LastActivity is the newest timestamp, zero when the room is silent.
	LastActivity time.Time
}

// PulseFromEvents builds a pulse from the message events of a timeline.
// Only the newest maxRecentEvents messages count.
func PulseFromEvents(evs []*matrix.Event) ActivityPulse {
	var recent []time.Time
	for i := len(evs) - 1; i >= 0 && len(recent) < maxRecentEvents; i-- {
		ev := evs[i]
		if ev == nil || ev.Redacted || ev.Type != matrix.EventRoomMessage {
			continue
		}
		recent = append(recent, ev.Timestamp)
	}
	pulse := ActivityPulse{RecentEvents: make([]time.Time, 0, len(recent))}
	for i := len(recent) - 1; i >= 0; i-- {
		pulse.RecentEvents = append(pulse.RecentEvents, recent[i])
	}
	if n := len(pulse.RecentEvents); n > 0 {
		pulse.LastActivity = pulse.RecentEvents[n-1]
	}
	return pulse
}

// Level grades the pulse relative to now.
func (p ActivityPulse) Level(now time.Time) ActivityLevel {
	if p.LastActivity.IsZero() {
		return ActivityNone
	}
	elapsed := now.Sub(p.LastActivity)
	switch {
	case elapsed < 10*time.Second:
		return ActivityHigh
	case elapsed < time.Minute:
		return ActivityMedium
	case elapsed < 5*time.Minute:
		return ActivityLow
	default:
		return ActivityNone
	}
}

// EventsInWindow counts events newer than now minus window.
func (p ActivityPulse) EventsInWindow(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	count := 0
	for _, t := range p.RecentEvents {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

// RenderActivityPulse renders the level as dots, e.g. "●●●○○".
func RenderActivityPulse(theme styles.Theme, pulse ActivityPulse, now time.Time) string {
	const totalDots = 5
	var activeDots int
	switch pulse.Level(now) {
	case ActivityHigh:
		activeDots = 5
	case ActivityMedium:
		activeDots = 3
	case ActivityLow:
		activeDots = 1
	}

	active := theme.Accent().Bold(true)
	inactive := theme.Muted()
	var b strings.Builder
	for i := 0; i < totalDots; i++ {
		if i < activeDots {
			b.WriteString(active.Render("●"))
		} else {
			b.WriteString(inactive.Render("○"))
		}
	}
	return b.String()
}

// RenderActivityLine renders the pulse with its message rate, e.g.
// "●●●○○ 2/min".
func RenderActivityLine(theme styles.Theme, pulse ActivityPulse, now time.Time) string {
	rate := theme.Muted().Render(fmt.Sprintf("%d/min", pulse.EventsInWindow(now, time.Minute)))
	return RenderActivityPulse(theme, pulse, now) + " " + rate
}
