package cli

import (
	"fmt"
	"io"
	"strings"
)

// PreflightError reports a command that cannot start, with advice on what
// to run instead.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

// Advice renders the hint and next step for printing after the error.
func (e *PreflightError) Advice() string {
	var b strings.Builder
	if e.Hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", e.Hint)
	}
	if e.NextStep != "" {
		fmt.Fprintf(&b, "Try:  %s\n", e.NextStep)
	}
	return b.String()
}

// HintContext provides context for generating relevant next steps.
type HintContext struct {
	// Action is the command that was executed (e.g., "import", "use").
	Action string

	// RoomID is the room involved (if any).
	RoomID string

	// EventID is the event involved (if any).
	EventID string
}

// PrintNextSteps prints contextual next steps after a successful command.
// Does nothing if JSON or quiet output is enabled.
func PrintNextSteps(w io.Writer, ctx HintContext) {
	if IsJSONOutput() || IsQuiet() {
		return
	}

	hints := generateHints(ctx)
	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	for _, hint := range hints {
		fmt.Fprintf(w, "  %s\n", hint)
	}
}

func generateHints(ctx HintContext) []string {
	switch ctx.Action {
	case "import":
		return []string{
			"mxview rooms                        # List imported rooms",
			"mxview use <room>                   # Select a room",
		}
	case "use":
		return hintsForUse()
	case "send":
		return hintsForSend(ctx)
	default:
		return nil
	}
}

func hintsForUse() []string {
	hints := make([]string, 0, 3)
	hints = append(hints,
		"mxview render                       # Print the timeline",
		"mxview send \"hello\"                 # Post a message",
	)
	if hasTTY() {
		hints = append(hints, "mxview view                         # Browse interactively")
	}
	return hints
}

func hintsForSend(ctx HintContext) []string {
	if ctx.EventID == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("mxview react %s 👍   # React to it", ctx.EventID),
		fmt.Sprintf("mxview redact %s     # Take it back", ctx.EventID),
	}
}
