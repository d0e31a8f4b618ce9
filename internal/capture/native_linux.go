//go:build linux

package capture

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
)

// x11Capturer captures the focused top-level window from its Composite
// pixmap, which holds the window contents even while it is obscured.
// It opens a connection per capture so nothing outlives the call.
type x11Capturer struct {
	display string
}

func newPlatformNativeCapturer() NativeCapturer {
	log := logger.WithComponent("x11-capturer")

	display := os.Getenv("DISPLAY")
	if display == "" {
		return unavailableCapturer{reason: "no X display"}
	}

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		log.Debug().Err(err).Msg("X server not reachable")
		return unavailableCapturer{reason: "X server not reachable"}
	}
	defer conn.Close()

	if err := composite.Init(conn); err != nil {
		log.Warn().Err(err).Msg("Composite extension not available, window capture disabled")
		return unavailableCapturer{reason: "no Composite extension"}
	}

	return &x11Capturer{display: display}
}

// Name returns the capturer name
func (c *x11Capturer) Name() string {
	return "X11 Composite"
}

// Available reports that the primitive is present
func (c *x11Capturer) Available() bool {
	return true
}

// CaptureWindow captures the top-level window holding input focus
func (c *x11Capturer) CaptureWindow() (*Frame, bool) {
	log := logger.WithComponent("x11-capturer")

	frame, err := c.capture()
	if err != nil {
		log.Debug().Err(err).Msg("Window capture returned no data")
		return nil, false
	}
	return frame, true
}

func (c *x11Capturer) capture() (*Frame, error) {
	conn, err := xgb.NewConnDisplay(c.display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	if err := composite.Init(conn); err != nil {
		return nil, fmt.Errorf("composite init: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	focus, err := xproto.GetInputFocus(conn).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get input focus: %w", err)
	}
	if focus.Focus == xproto.WindowNone || focus.Focus == xproto.Window(xproto.InputFocusPointerRoot) || focus.Focus == screen.Root {
		return nil, fmt.Errorf("no focused window")
	}

	win, err := topLevel(conn, screen.Root, focus.Focus)
	if err != nil {
		return nil, err
	}

	attrs, err := xproto.GetWindowAttributes(conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return nil, fmt.Errorf("window 0x%x is not viewable (minimized?)", uint32(win))
	}

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}
	width, height := int(geom.Width), int(geom.Height)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window 0x%x has no area", uint32(win))
	}
	if geom.Depth != 24 && geom.Depth != 32 {
		return nil, fmt.Errorf("unsupported depth %d", geom.Depth)
	}

	if err := composite.RedirectWindowChecked(conn, win, composite.RedirectAutomatic).Check(); err != nil {
		return nil, fmt.Errorf("failed to redirect window: %w", err)
	}
	defer composite.UnredirectWindow(conn, win, composite.RedirectAutomatic)

	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pixmap id: %w", err)
	}
	if err := composite.NameWindowPixmapChecked(conn, win, pixmap).Check(); err != nil {
		return nil, fmt.Errorf("failed to name window pixmap: %w", err)
	}
	defer xproto.FreePixmap(conn, pixmap)

	reply, err := xproto.GetImage(
		conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(pixmap),
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	buf, err := pixel.FromBGRA(reply.Data, width, height, len(reply.Data)/height)
	if err != nil {
		return nil, err
	}

	// report the managed client so the ID lines up with the window list
	client := clientWindow(conn, screen.Root, focus.Focus, win)

	x, y := 0, 0
	if tr, err := xproto.TranslateCoordinates(conn, win, screen.Root, 0, 0).Reply(); err == nil {
		x, y = int(tr.DstX), int(tr.DstY)
	}

	window := &config.WindowInfo{
		ID:      uint64(client),
		Title:   windowTitle(conn, client, focus.Focus, win),
		Focused: true,
		Geometry: config.Geometry{
			X:      x,
			Y:      y,
			Width:  width,
			Height: height,
		},
	}
	return &Frame{Buffer: buf, Window: window}, nil
}

// topLevel walks up from win to the child of root that contains it, which is
// the window manager frame when one exists
func topLevel(conn *xgb.Conn, root, win xproto.Window) (xproto.Window, error) {
	for {
		tree, err := xproto.QueryTree(conn, win).Reply()
		if err != nil {
			return 0, fmt.Errorf("failed to query tree: %w", err)
		}
		if tree.Parent == root || tree.Parent == xproto.WindowNone {
			return win, nil
		}
		win = tree.Parent
	}
}

// clientWindow walks up from win to the first window carrying WM_STATE,
// which is the one a window manager lists. It returns top when none does.
func clientWindow(conn *xgb.Conn, root, win, top xproto.Window) xproto.Window {
	const name = "WM_STATE"
	atom, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
	if err != nil || atom.Atom == xproto.AtomNone {
		return top
	}
	for win != root && win != xproto.WindowNone {
		prop, err := xproto.GetProperty(conn, false, win, atom.Atom,
			xproto.GetPropertyTypeAny, 0, 0).Reply()
		if err == nil && prop.Type != xproto.AtomNone {
			return win
		}
		if win == top {
			break
		}
		tree, err := xproto.QueryTree(conn, win).Reply()
		if err != nil {
			break
		}
		win = tree.Parent
	}
	return top
}

// windowTitle reads _NET_WM_NAME or WM_NAME from the focused client window,
// falling back to the frame
func windowTitle(conn *xgb.Conn, candidates ...xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
		if err != nil || atom.Atom == xproto.AtomNone {
			continue
		}
		for _, win := range candidates {
			reply, err := xproto.GetProperty(conn, false, win, atom.Atom,
				xproto.GetPropertyTypeAny, 0, 1024).Reply()
			if err == nil && reply.ValueLen > 0 {
				return string(reply.Value)
			}
		}
	}
	return ""
}
