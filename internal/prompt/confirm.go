// Package prompt asks the user to confirm destructive actions.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ConfirmFunc asks the user to confirm an action described by title and
// message. It returns false when the user declines or cannot be asked.
type ConfirmFunc func(ctx context.Context, title, message string) bool

// Deny declines everything.
func Deny(context.Context, string, string) bool { return false }

// Accept approves everything, for --yes style flags.
func Accept(context.Context, string, string) bool { return true }

// Terminal returns a ConfirmFunc that asks on out and reads a y/N answer
// from in. When in is not a terminal the action is declined.
func Terminal(in *os.File, out io.Writer) ConfirmFunc {
	return func(ctx context.Context, title, message string) bool {
		if !term.IsTerminal(int(in.Fd())) {
			return false
		}
		return Ask(ctx, in, out, title, message)
	}
}

// Ask writes the question to out and reads a single answer line from in.
func Ask(ctx context.Context, in io.Reader, out io.Writer, title, message string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(out, "%s\n%s\n[y/N]: ", title, message)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
