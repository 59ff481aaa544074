package tui

import "sync"

// Viewport is the scrollable timeline pane. It satisfies the room view's
// scroll controller and is safe for use from timeline callbacks.
type Viewport struct {
	mu      sync.Mutex
	content Rendered
	height  int
	offset  int

	// restore keeps the row that was on top before the last SetContent so
	// TryRestoringScroll can pin it after older rows are prepended.
	restoreID   string
	restoreSkew int
}

// NewViewport returns an empty viewport of the given height.
func NewViewport(height int) *Viewport {
	return &Viewport{height: height}
}

// SetHeight resizes the viewport, keeping the bottom pinned when it was.
func (v *Viewport) SetHeight(height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	atBottom := v.atBottomLocked()
	v.height = height
	if atBottom {
		v.offset = v.maxOffsetLocked()
	}
	v.clampLocked()
}

// SetContent replaces the rendered rows.
func (v *Viewport) SetContent(r Rendered) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.restoreID, v.restoreSkew = "", 0
	for _, a := range v.content.Anchors {
		if a.Line >= v.offset {
			v.restoreID = a.EventID
			v.restoreSkew = a.Line - v.offset
			break
		}
	}
	v.content = r
	v.clampLocked()
}

// Content returns the current rows.
func (v *Viewport) Content() Rendered {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.content
}

// IsScrollable reports whether the rows overflow the viewport.
func (v *Viewport) IsScrollable() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.content.Lines) > v.height
}

// ReachBottom scrolls to the newest row.
func (v *Viewport) ReachBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.maxOffsetLocked()
}

// TryRestoringScroll keeps the previously topmost message in place after
// history was prepended.
func (v *Viewport) TryRestoringScroll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.restoreID == "" {
		return
	}
	if line := v.content.LineOf(v.restoreID); line >= 0 {
		v.offset = line - v.restoreSkew
		v.clampLocked()
	}
}

// Scroll moves by delta lines and reports whether the top and the bottom
// are reached afterwards.
func (v *Viewport) Scroll(delta int) (atTop, atBottom bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset += delta
	v.clampLocked()
	return v.offset == 0, v.atBottomLocked()
}

// AtBottom reports whether the newest row is visible.
func (v *Viewport) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.atBottomLocked()
}

// Offset returns the index of the first visible line.
func (v *Viewport) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// Visible returns the lines currently on screen.
func (v *Viewport) Visible() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	end := v.offset + v.height
	if end > len(v.content.Lines) {
		end = len(v.content.Lines)
	}
	if v.offset >= end {
		return nil
	}
	return append([]string(nil), v.content.Lines[v.offset:end]...)
}

// EnsureVisible scrolls the minimum needed to show line.
func (v *Viewport) EnsureVisible(line int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case line < v.offset:
		v.offset = line
	case line >= v.offset+v.height:
		v.offset = line - v.height + 1
	}
	v.clampLocked()
}

func (v *Viewport) atBottomLocked() bool {
	return v.offset >= v.maxOffsetLocked()
}

func (v *Viewport) maxOffsetLocked() int {
	if m := len(v.content.Lines) - v.height; m > 0 {
		return m
	}
	return 0
}

func (v *Viewport) clampLocked() {
	if limit := v.maxOffsetLocked(); v.offset > limit {
		v.offset = limit
	}
	if v.offset < 0 {
		v.offset = 0
	}
}
