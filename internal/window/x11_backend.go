//go:build !windows

package window

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
)

// X11Backend implements the Backend interface using X11
type X11Backend struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	atoms  map[string]xproto.Atom
	mu     sync.Mutex
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Backend{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		atoms:  make(map[string]xproto.Atom),
	}, nil
}

func newPlatformBackend() (Backend, error) {
	return NewX11Backend()
}

// Connect establishes connection to X11 (already done in NewX11Backend)
func (b *X11Backend) Connect() error {
	return nil
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// ListWindows returns all visible windows using EWMH _NET_CLIENT_LIST with QueryTree fallback
func (b *X11Backend) ListWindows() ([]*config.WindowInfo, error) {
	log := logger.WithComponent("x11-backend")

	ids, err := b.clientList()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("ListWindows: EWMH unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(b.conn, b.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query root tree: %w", err)
		}
		ids = tree.Children
	}

	active := b.activeWindow()
	windows := make([]*config.WindowInfo, 0, len(ids))
	for _, id := range ids {
		if !b.viewable(id) {
			continue
		}
		info, err := b.getWindowInfo(id)
		if err != nil {
			log.Debug().Uint32("winID", uint32(id)).Err(err).Msg("ListWindows: failed to get window info")
			continue
		}

		// Skip windows without titles or class (usually not user windows)
		if info.Title == "" && info.Class == "" {
			continue
		}

		info.Focused = id == active
		windows = append(windows, info)
	}

	log.Debug().Int("count", len(windows)).Msg("ListWindows")
	return windows, nil
}

// clientList reads the window ids in _NET_CLIENT_LIST
func (b *X11Backend) clientList() ([]xproto.Window, error) {
	atom, err := b.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(b.conn, false, b.root, atom,
		xproto.AtomWindow, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(xgb.Get32(reply.Value[i:])))
	}
	return ids, nil
}

// activeWindow returns _NET_ACTIVE_WINDOW, or 0 when the window manager does
// not publish it
func (b *X11Backend) activeWindow() xproto.Window {
	atom, err := b.getAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return 0
	}
	id, ok := b.getCardinal(b.root, atom, xproto.AtomWindow)
	if !ok {
		return 0
	}
	return xproto.Window(id)
}

// GetFocusedWindow returns the currently focused window
func (b *X11Backend) GetFocusedWindow() (*config.WindowInfo, error) {
	win := b.activeWindow()
	if win == 0 {
		focus, err := xproto.GetInputFocus(b.conn).Reply()
		if err != nil {
			return nil, err
		}
		win = focus.Focus
	}
	if win == xproto.WindowNone || win == b.root || win == xproto.Window(xproto.InputFocusPointerRoot) {
		return nil, fmt.Errorf("no focused window")
	}

	info, err := b.getWindowInfo(win)
	if err != nil {
		return nil, err
	}
	info.Focused = true
	return info, nil
}

// Activate asks the window manager to activate the window, raises and
// focuses it directly, then clears it with exposures so the client repaints
func (b *X11Backend) Activate(window *config.WindowInfo) error {
	log := logger.WithComponent("x11-backend")
	win := xproto.Window(window.ID)

	if atom, err := b.getAtom("_NET_ACTIVE_WINDOW"); err == nil {
		ev := xproto.ClientMessageEvent{
			Format: 32,
			Window: win,
			Type:   atom,
			// source indication 2 = pager, so the request is honoured
			Data: xproto.ClientMessageDataUnionData32New([]uint32{2, xproto.TimeCurrentTime, 0, 0, 0}),
		}
		mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
		if err := xproto.SendEventChecked(b.conn, false, b.root, mask, string(ev.Bytes())).Check(); err != nil {
			log.Debug().Err(err).Msg("_NET_ACTIVE_WINDOW request failed")
		}
	}

	xproto.MapWindow(b.conn, win)
	xproto.ConfigureWindow(b.conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})

	if err := xproto.SetInputFocusChecked(b.conn, xproto.InputFocusParent, win, xproto.TimeCurrentTime).Check(); err != nil {
		log.Debug().Err(err).Uint64("winID", window.ID).Msg("SetInputFocus failed")
	}

	if err := xproto.ClearAreaChecked(b.conn, true, win, 0, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("failed to expose window 0x%x: %w", window.ID, err)
	}

	// round trip so the server has processed everything before readback
	if _, err := xproto.GetInputFocus(b.conn).Reply(); err != nil {
		return fmt.Errorf("failed to sync with X server: %w", err)
	}

	log.Debug().Uint64("winID", window.ID).Str("title", window.Title).Msg("Activated window")
	return nil
}

func (b *X11Backend) viewable(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(b.conn, win).Reply()
	return err == nil && attrs.MapState == xproto.MapStateViewable
}

// getWindowInfo retrieves information about a window
func (b *X11Backend) getWindowInfo(win xproto.Window) (*config.WindowInfo, error) {
	info := &config.WindowInfo{
		ID: uint64(win),
	}

	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get geometry: %w", err)
	}
	info.Geometry = config.Geometry{
		X:      int(geom.X),
		Y:      int(geom.Y),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}

	// client windows are reparented into frames, so geometry is parent relative
	if tr, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply(); err == nil {
		info.Geometry.X = int(tr.DstX)
		info.Geometry.Y = int(tr.DstY)
	}

	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := b.getAtom(name)
		if err != nil {
			continue
		}
		if title, err := b.getProperty(win, atom); err == nil {
			info.Title = title
			break
		}
	}

	// WM_CLASS format is: instance\0class\0 (two null-terminated strings)
	if atom, err := b.getAtom("WM_CLASS"); err == nil {
		if classRaw, err := b.getProperty(win, atom); err == nil {
			parts := strings.Split(classRaw, "\x00")
			if len(parts) >= 2 && parts[1] != "" {
				info.Class = parts[1]
			} else if parts[0] != "" {
				info.Class = parts[0]
			}
		}
	}

	if atom, err := b.getAtom("_NET_WM_PID"); err == nil {
		if pid, ok := b.getCardinal(win, atom, xproto.AtomCardinal); ok {
			info.PID = int(pid)
		}
	}

	return info, nil
}

// getAtom gets an atom ID by name
func (b *X11Backend) getAtom(name string) (xproto.Atom, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if atom, ok := b.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// getProperty gets a property value as a string
func (b *X11Backend) getProperty(win xproto.Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(
		b.conn,
		false,
		win,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}

	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}

	return string(reply.Value), nil
}

// getCardinal reads a single 32-bit property value
func (b *X11Backend) getCardinal(win xproto.Window, atom, typ xproto.Atom) (uint32, bool) {
	reply, err := xproto.GetProperty(b.conn, false, win, atom, typ, 0, 1).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0, false
	}
	return xgb.Get32(reply.Value), true
}
