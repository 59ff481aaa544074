package timeline

import (
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
)

// DefaultGroupWindow is the longest gap between two messages from the same
// sender that still renders them as one block.
const DefaultGroupWindow = 5 * time.Minute

// IsGrouped reports whether ev renders without its own header because it
// continues prev. prev must be the immediately preceding visible event; the
// rule never looks further back.
func IsGrouped(prev, ev *matrix.Event, window time.Duration) bool {
	if prev == nil || ev == nil {
		return false
	}
	if Classify(prev, nil) != Message {
		return false
	}
	if prev.Sender != ev.Sender {
		return false
	}
	return ev.Timestamp.Sub(prev.Timestamp) <= window
}

// Grouped is one visible event annotated by the grouping pass.
type Grouped struct {
	Event     *matrix.Event
	IsGrouped bool
}

// Group annotates an ordered sequence of visible events.
func Group(events []*matrix.Event, window time.Duration) []Grouped {
	if window <= 0 {
		window = DefaultGroupWindow
	}
	out := make([]Grouped, 0, len(events))
	var prev *matrix.Event
	for _, ev := range events {
		if ev == nil {
			continue
		}
		out = append(out, Grouped{Event: ev, IsGrouped: IsGrouped(prev, ev, window)})
		prev = ev
	}
	return out
}
