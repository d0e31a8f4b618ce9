package capture

import (
	"fmt"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
)

// Target selects which logical view to capture
type Target string

const (
	TargetScene  Target = config.TargetScene
	TargetGame   Target = config.TargetGame
	TargetEditor Target = config.TargetEditor
)

// ParseTarget validates a target name
func ParseTarget(name string) (Target, error) {
	switch t := Target(name); t {
	case TargetScene, TargetGame, TargetEditor:
		return t, nil
	default:
		return "", fmt.Errorf("unknown target %q (use scene, game or editor)", name)
	}
}

// Title is the human-readable view name used in descriptions
func (t Target) Title() string {
	switch t {
	case TargetScene:
		return "Scene view"
	case TargetGame:
		return "Game view"
	case TargetEditor:
		return "Editor window"
	default:
		return string(t)
	}
}

// Bound limits accepted by the core
const (
	MinBound       = 64
	MaxBoundWidth  = 1920
	MaxBoundHeight = 1080
)

// Bounds are upper limits on the output size
type Bounds struct {
	MaxWidth  int
	MaxHeight int
}

// DefaultBounds returns the largest accepted bounds
func DefaultBounds() Bounds {
	return Bounds{MaxWidth: MaxBoundWidth, MaxHeight: MaxBoundHeight}
}

// Validate rejects non-positive or out of range bounds
func (b Bounds) Validate() error {
	if b.MaxWidth < MinBound || b.MaxWidth > MaxBoundWidth ||
		b.MaxHeight < MinBound || b.MaxHeight > MaxBoundHeight {
		return newFailure(KindInvalidBounds, nil,
			"bounds %dx%d outside [%d,%d]x[%d,%d]",
			b.MaxWidth, b.MaxHeight, MinBound, MaxBoundWidth, MinBound, MaxBoundHeight)
	}
	return nil
}

// Result is one encoded capture
type Result struct {
	PNG          []byte
	Description  string
	Width        int // encoded pixel width
	Height       int // encoded pixel height
	SourceWidth  int
	SourceHeight int
	Strategy     string
	Window       *config.WindowInfo
}

// Frame is a captured buffer together with the window it came from
type Frame struct {
	Buffer *pixel.Buffer
	Window *config.WindowInfo
}

// SurfaceResolver is the environment capability that maps targets to windows
type SurfaceResolver interface {
	// Resolve returns the window for a target, or an error wrapping
	// ErrNoActiveSurface when it is not open.
	Resolve(target Target) (*config.WindowInfo, error)

	// Repaint raises the window and forces it to redraw before readback
	Repaint(window *config.WindowInfo) error

	// FocusedWindow returns the window that currently has input focus
	FocusedWindow() (*config.WindowInfo, error)
}

// SurfaceReader reads composited screen pixels for a window's rectangle
type SurfaceReader interface {
	ReadSurfacePixels(window *config.WindowInfo, x, y, width, height int) (*pixel.Buffer, error)
	Name() string
}

// NativeCapturer captures the active top-level window through the OS window
// capture facility. It never fails loudly: ok is false when it has nothing.
type NativeCapturer interface {
	CaptureWindow() (frame *Frame, ok bool)

	// Available reports whether the primitive exists on this platform
	Available() bool

	// Name returns a human-readable name for this capturer
	Name() string
}
