package styles

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// SenderColorPalette is an ANSI-256 palette for stable sender colors. Red and
// green are left out so they stay free for highlight and status colors.
var SenderColorPalette = []string{
	"33", "39", "45", "69", "75", "81", "87", "99",
	"111", "117", "123", "147", "153", "159", "183", "189",
}

// SenderColorMapper resolves a stable style per Matrix user id and caches it.
type SenderColorMapper struct {
	palette []string

	mu         sync.RWMutex
	fgCache    map[string]lipgloss.Style
	bgCache    map[string]lipgloss.Style
	colorCache map[string]string
}

// NewSenderColorMapper returns a mapper over palette, or the default palette
// when it is empty.
func NewSenderColorMapper(palette []string) *SenderColorMapper {
	if len(palette) == 0 {
		palette = SenderColorPalette
	}
	paletteCopy := make([]string, len(palette))
	copy(paletteCopy, palette)

	return &SenderColorMapper{
		palette:    paletteCopy,
		fgCache:    make(map[string]lipgloss.Style, 64),
		bgCache:    make(map[string]lipgloss.Style, 64),
		colorCache: make(map[string]string, 64),
	}
}

// Foreground returns the bold name style for userID.
func (m *SenderColorMapper) Foreground(userID string) lipgloss.Style {
	key := normalizeSender(userID)

	m.mu.RLock()
	if style, ok := m.fgCache[key]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	colorCode := m.ColorCode(key)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(colorCode)).Bold(true)

	m.mu.Lock()
	m.fgCache[key] = style
	m.mu.Unlock()

	return style
}

// Background returns the avatar badge style for userID.
func (m *SenderColorMapper) Background(userID string) lipgloss.Style {
	key := normalizeSender(userID)

	m.mu.RLock()
	if style, ok := m.bgCache[key]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	colorCode := m.ColorCode(key)
	fgCode := contrastingTextColor(colorCode)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(fgCode)).Background(lipgloss.Color(colorCode)).Bold(true)

	m.mu.Lock()
	m.bgCache[key] = style
	m.mu.Unlock()

	return style
}

// ColorCode returns the ANSI-256 color code selected for userID.
func (m *SenderColorMapper) ColorCode(userID string) string {
	key := normalizeSender(userID)

	m.mu.RLock()
	if colorCode, ok := m.colorCache[key]; ok {
		m.mu.RUnlock()
		return colorCode
	}
	m.mu.RUnlock()

	idx := hashSender(key, len(m.palette))
	colorCode := m.palette[idx]

	m.mu.Lock()
	m.colorCache[key] = colorCode
	m.mu.Unlock()

	return colorCode
}

// normalizeSender keys colors on the user id without its sigil so "@Alice:hs"
// and "alice:hs" share a color.
func normalizeSender(userID string) string {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(userID), "@"))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func hashSender(key string, paletteLen int) int {
	if paletteLen == 0 {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(paletteLen))
}

func contrastingTextColor(code string) string {
	index, err := strconv.Atoi(code)
	if err != nil {
		return "231"
	}

	r, g, b := ansi256ToRGB(index)
	brightness := (299*r + 587*g + 114*b) / 1000
	if brightness >= 150 {
		return "16"
	}
	return "231"
}

func ansi256ToRGB(index int) (int, int, int) {
	if index < 0 {
		return 255, 255, 255
	}

	if index < 16 {
		table := [16][3]int{
			{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
			{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
			{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
			{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
		}
		return table[index][0], table[index][1], table[index][2]
	}

	if index >= 16 && index <= 231 {
		cube := index - 16
		r := cube / 36
		g := (cube / 6) % 6
		b := cube % 6
		return channelValue(r), channelValue(g), channelValue(b)
	}

	if index <= 255 {
		gray := 8 + (index-232)*10
		return gray, gray, gray
	}

	return 255, 255, 255
}

func channelValue(v int) int {
	if v == 0 {
		return 0
	}
	return 55 + v*40
}
