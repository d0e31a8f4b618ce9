package capture

import (
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
)

// Handle is a Win32 handle value (HWND, HDC, HBITMAP, HGDIOBJ)
type Handle uintptr

// Rect mirrors the Win32 RECT
type Rect struct {
	Left, Top, Right, Bottom int32
}

// pwRenderFullContent asks PrintWindow to include DWM-composited content
const pwRenderFullContent = 0x00000002

// gdiAPI is the slice of user32/gdi32 the window capturer needs. The windows
// build binds it to the real DLLs; tests substitute a handle-counting fake.
type gdiAPI interface {
	ForegroundWindow() Handle
	WindowRect(hwnd Handle) (Rect, bool)
	WindowText(hwnd Handle) string
	WindowDC(hwnd Handle) Handle
	ReleaseDC(hwnd, hdc Handle)
	CreateCompatibleDC(hdc Handle) Handle
	DeleteDC(hdc Handle)
	CreateCompatibleBitmap(hdc Handle, width, height int) Handle
	SelectObject(hdc, obj Handle) Handle
	DeleteObject(obj Handle)
	PrintWindow(hwnd, hdc Handle, flags uint32) bool
	// DIBits copies the bitmap as top-down 32bpp BGRA rows into dst
	DIBits(hdc, bitmap Handle, width, height int, dst []byte) bool
}

// gdiCapturer captures the foreground window with PrintWindow so occluded
// and hardware-composited windows come out intact.
type gdiCapturer struct {
	api gdiAPI
}

func newGDICapturer(api gdiAPI) *gdiCapturer {
	return &gdiCapturer{api: api}
}

// Name returns the capturer name
func (c *gdiCapturer) Name() string {
	return "PrintWindow"
}

// Available reports that the primitive is present
func (c *gdiCapturer) Available() bool {
	return true
}

// CaptureWindow captures the foreground window. Every handle acquired here is
// released before returning, whichever branch returns.
func (c *gdiCapturer) CaptureWindow() (*Frame, bool) {
	log := logger.WithComponent("gdi-capturer")

	hwnd := c.api.ForegroundWindow()
	if hwnd == 0 {
		log.Debug().Msg("No foreground window")
		return nil, false
	}

	rect, ok := c.api.WindowRect(hwnd)
	if !ok {
		log.Debug().Uint64("hwnd", uint64(hwnd)).Msg("GetWindowRect failed")
		return nil, false
	}
	width := int(rect.Right - rect.Left)
	height := int(rect.Bottom - rect.Top)
	if width <= 0 || height <= 0 {
		log.Debug().
			Uint64("hwnd", uint64(hwnd)).
			Int("width", width).
			Int("height", height).
			Msg("Foreground window has no area")
		return nil, false
	}

	var scope releaseScope
	defer scope.Close()

	windowDC := c.api.WindowDC(hwnd)
	if windowDC == 0 {
		log.Debug().Msg("GetWindowDC failed")
		return nil, false
	}
	scope.push(func() { c.api.ReleaseDC(hwnd, windowDC) })

	memDC := c.api.CreateCompatibleDC(windowDC)
	if memDC == 0 {
		log.Debug().Msg("CreateCompatibleDC failed")
		return nil, false
	}
	scope.push(func() { c.api.DeleteDC(memDC) })

	bitmap := c.api.CreateCompatibleBitmap(windowDC, width, height)
	if bitmap == 0 {
		log.Debug().Int("width", width).Int("height", height).Msg("CreateCompatibleBitmap failed")
		return nil, false
	}
	scope.push(func() { c.api.DeleteObject(bitmap) })

	// the bitmap must be deselected before DeleteObject runs
	old := c.api.SelectObject(memDC, bitmap)
	scope.push(func() { c.api.SelectObject(memDC, old) })

	if !c.api.PrintWindow(hwnd, memDC, pwRenderFullContent) {
		log.Debug().Uint64("hwnd", uint64(hwnd)).Msg("PrintWindow failed (window minimized?)")
		return nil, false
	}

	data := make([]byte, width*height*pixel.BytesPerPixel)
	if !c.api.DIBits(memDC, bitmap, width, height, data) {
		log.Debug().Msg("GetDIBits failed")
		return nil, false
	}

	buf, err := pixel.FromBGRA(data, width, height, width*pixel.BytesPerPixel)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to convert window pixels")
		return nil, false
	}

	window := &config.WindowInfo{
		ID:      uint64(hwnd),
		Title:   c.api.WindowText(hwnd),
		Focused: true,
		Geometry: config.Geometry{
			X:      int(rect.Left),
			Y:      int(rect.Top),
			Width:  width,
			Height: height,
		},
	}
	return &Frame{Buffer: buf, Window: window}, true
}
