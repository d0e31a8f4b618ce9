package window

import (
	"github.com/bryanchriswhite/viewcapture/internal/config"
)

// Backend defines the interface for window discovery backends (X11, Win32)
type Backend interface {
	// Connect establishes connection to the display server
	Connect() error

	// Close closes the connection to the display server
	Close() error

	// ListWindows returns all visible application windows
	ListWindows() ([]*config.WindowInfo, error)

	// GetFocusedWindow returns the currently focused window
	GetFocusedWindow() (*config.WindowInfo, error)

	// Activate raises and focuses the window and asks it to redraw
	Activate(window *config.WindowInfo) error

	// Name returns the backend name (e.g., "x11", "win32")
	Name() string
}

// NewBackend returns the backend for this platform, connected
func NewBackend() (Backend, error) {
	b, err := newPlatformBackend()
	if err != nil {
		return nil, err
	}
	if err := b.Connect(); err != nil {
		return nil, err
	}
	return b, nil
}
