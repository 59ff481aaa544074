package components

import (
	"time"

	"github.com/tOgg1/mxview/internal/tui/styles"
)

// SpinnerFrames are the braille frames of the loading spinner.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerFrameDuration = 100 * time.Millisecond

// Spinner returns the frame for index frame. Negative indexes wrap.
func Spinner(frame int) string {
	n := len(SpinnerFrames)
	return SpinnerFrames[((frame%n)+n)%n]
}

// SpinnerAt returns the frame shown at t.
func SpinnerAt(t time.Time) string {
	return Spinner(int(t.UnixMilli() / spinnerFrameDuration.Milliseconds()))
}

// RenderSpinner renders a spinner frame followed by a muted label.
func RenderSpinner(theme styles.Theme, frame string, label string) string {
	out := theme.Accent().Render(frame)
	if label != "" {
		out += " " + theme.Muted().Render(label)
	}
	return out
}
