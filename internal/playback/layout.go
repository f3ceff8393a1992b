package playback

import "strings"

// LayoutCapability tells the session whether it is presented on a narrow viewport, where the
// lesson panel is an overlay the viewer opens and closes.
type LayoutCapability interface {
	Narrow() bool
}

// Viewport is the stock LayoutCapability reported by clients.
type Viewport string

const (
	ViewportWide   Viewport = "wide"
	ViewportNarrow Viewport = "narrow"
)

// Narrow implements LayoutCapability.
func (v Viewport) Narrow() bool { return v == ViewportNarrow }

// ParseViewport maps a client value to a Viewport. Anything unrecognised is wide.
func ParseViewport(s string) Viewport {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "narrow", "mobile", "compact":
		return ViewportNarrow
	default:
		return ViewportWide
	}
}

// ViewportOf returns the Viewport matching a capability.
func ViewportOf(c LayoutCapability) Viewport {
	if c != nil && c.Narrow() {
		return ViewportNarrow
	}
	return ViewportWide
}
