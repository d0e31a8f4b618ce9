//go:build windows

package capture

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procGetForegroundWindow    = user32.NewProc("GetForegroundWindow")
	procGetWindowRect          = user32.NewProc("GetWindowRect")
	procGetWindowTextW         = user32.NewProc("GetWindowTextW")
	procGetWindowDC            = user32.NewProc("GetWindowDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procPrintWindow            = user32.NewProc("PrintWindow")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")

	dpiOnce sync.Once
)

const (
	biRGB        = 0
	dibRGBColors = 0
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

// win32GDI binds gdiAPI to user32.dll and gdi32.dll
type win32GDI struct{}

func (win32GDI) ForegroundWindow() Handle {
	hwnd, _, _ := procGetForegroundWindow.Call()
	return Handle(hwnd)
}

func (win32GDI) WindowRect(hwnd Handle) (Rect, bool) {
	var r Rect
	ret, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	return r, ret != 0
}

func (win32GDI) WindowText(hwnd Handle) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (win32GDI) WindowDC(hwnd Handle) Handle {
	hdc, _, _ := procGetWindowDC.Call(uintptr(hwnd))
	return Handle(hdc)
}

func (win32GDI) ReleaseDC(hwnd, hdc Handle) {
	procReleaseDC.Call(uintptr(hwnd), uintptr(hdc))
}

func (win32GDI) CreateCompatibleDC(hdc Handle) Handle {
	mem, _, _ := procCreateCompatibleDC.Call(uintptr(hdc))
	return Handle(mem)
}

func (win32GDI) DeleteDC(hdc Handle) {
	procDeleteDC.Call(uintptr(hdc))
}

func (win32GDI) CreateCompatibleBitmap(hdc Handle, width, height int) Handle {
	bmp, _, _ := procCreateCompatibleBitmap.Call(uintptr(hdc), uintptr(width), uintptr(height))
	return Handle(bmp)
}

func (win32GDI) SelectObject(hdc, obj Handle) Handle {
	old, _, _ := procSelectObject.Call(uintptr(hdc), uintptr(obj))
	return Handle(old)
}

func (win32GDI) DeleteObject(obj Handle) {
	procDeleteObject.Call(uintptr(obj))
}

func (win32GDI) PrintWindow(hwnd, hdc Handle, flags uint32) bool {
	ret, _, _ := procPrintWindow.Call(uintptr(hwnd), uintptr(hdc), uintptr(flags))
	return ret != 0
}

func (win32GDI) DIBits(hdc, bitmap Handle, width, height int, dst []byte) bool {
	if len(dst) < width*height*4 {
		return false
	}
	bmi := bitmapInfo{
		BmiHeader: bitmapInfoHeader{
			BiSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			BiWidth:       int32(width),
			BiHeight:      int32(-height), // negative height: top-down rows
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: biRGB,
		},
	}
	ret, _, _ := procGetDIBits.Call(
		uintptr(hdc),
		uintptr(bitmap),
		0,
		uintptr(height),
		uintptr(unsafe.Pointer(&dst[0])),
		uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors,
	)
	return ret != 0
}

func newPlatformNativeCapturer() NativeCapturer {
	// window rectangles must be physical pixels to match the bitmap
	dpiOnce.Do(func() {
		if procSetProcessDPIAware.Find() == nil {
			procSetProcessDPIAware.Call()
		}
	})
	return newGDICapturer(win32GDI{})
}
