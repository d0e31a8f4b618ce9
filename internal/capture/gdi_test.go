package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGDI tracks every handle it hands out so tests can assert none leak
type fakeGDI struct {
	foreground Handle
	rect       Rect
	rectOK     bool
	title      string
	failDC     bool
	failBitmap bool
	failPrint  bool
	failBits   bool
	fill       []byte // BGRA pattern repeated over the bitmap

	next        Handle
	dcs         map[Handle]bool
	memDCs      map[Handle]bool
	bitmaps     map[Handle]bool
	selected    map[Handle]Handle // memDC -> currently selected object
	deletedLive []Handle          // bitmaps deleted while still selected
	printFlags  uint32
}

func newFakeGDI() *fakeGDI {
	return &fakeGDI{
		foreground: 0x1001,
		rect:       Rect{Left: 10, Top: 20, Right: 14, Bottom: 23},
		rectOK:     true,
		title:      "Unity 2022.3 - Main.unity",
		fill:       []byte{10, 20, 30, 0},
		next:       0x2000,
		dcs:        map[Handle]bool{},
		memDCs:     map[Handle]bool{},
		bitmaps:    map[Handle]bool{},
		selected:   map[Handle]Handle{},
	}
}

func (f *fakeGDI) alloc() Handle {
	f.next++
	return f.next
}

func (f *fakeGDI) outstanding() int {
	return len(f.dcs) + len(f.memDCs) + len(f.bitmaps)
}

func (f *fakeGDI) ForegroundWindow() Handle       { return f.foreground }
func (f *fakeGDI) WindowRect(Handle) (Rect, bool) { return f.rect, f.rectOK }
func (f *fakeGDI) WindowText(Handle) string       { return f.title }
func (f *fakeGDI) ReleaseDC(_ Handle, hdc Handle) { delete(f.dcs, hdc) }
func (f *fakeGDI) DeleteDC(hdc Handle)            { delete(f.memDCs, hdc) }

func (f *fakeGDI) CreateCompatibleDC(Handle) Handle {
	h := f.alloc()
	f.memDCs[h] = true
	return h
}

func (f *fakeGDI) WindowDC(Handle) Handle {
	if f.failDC {
		return 0
	}
	h := f.alloc()
	f.dcs[h] = true
	return h
}

func (f *fakeGDI) CreateCompatibleBitmap(_ Handle, _, _ int) Handle {
	if f.failBitmap {
		return 0
	}
	h := f.alloc()
	f.bitmaps[h] = true
	return h
}

func (f *fakeGDI) SelectObject(hdc, obj Handle) Handle {
	old := f.selected[hdc]
	if old == 0 {
		old = 0x9999 // stock bitmap
	}
	f.selected[hdc] = obj
	return old
}

func (f *fakeGDI) DeleteObject(obj Handle) {
	for _, sel := range f.selected {
		if sel == obj {
			f.deletedLive = append(f.deletedLive, obj)
		}
	}
	delete(f.bitmaps, obj)
}

func (f *fakeGDI) PrintWindow(_, _ Handle, flags uint32) bool {
	f.printFlags = flags
	return !f.failPrint
}

func (f *fakeGDI) DIBits(_, _ Handle, _, _ int, dst []byte) bool {
	if f.failBits {
		return false
	}
	for i := range dst {
		dst[i] = f.fill[i%len(f.fill)]
	}
	return true
}

func TestGDICaptureRemapsBGRA(t *testing.T) {
	api := newFakeGDI()
	c := newGDICapturer(api)

	frame, ok := c.CaptureWindow()
	require.True(t, ok)
	require.NotNil(t, frame)

	buf := frame.Buffer
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)
	r, g, b, a := buf.At(0, 0)
	assert.Equal(t, [4]uint8{30, 20, 10, 255}, [4]uint8{r, g, b, a})

	assert.Equal(t, "Unity 2022.3 - Main.unity", frame.Window.Title)
	assert.Equal(t, 10, frame.Window.Geometry.X)
	assert.Equal(t, uint32(pwRenderFullContent), api.printFlags)

	assert.Zero(t, api.outstanding(), "all handles released")
	assert.Empty(t, api.deletedLive, "bitmap deselected before delete")
}

func TestGDICaptureRejectsEmptyRect(t *testing.T) {
	for _, rect := range []Rect{
		{Left: 0, Top: 0, Right: 0, Bottom: 100},
		{Left: 0, Top: 0, Right: 100, Bottom: 0},
		{Left: 50, Top: 50, Right: 10, Bottom: 80},
	} {
		api := newFakeGDI()
		api.rect = rect

		frame, ok := newGDICapturer(api).CaptureWindow()
		assert.False(t, ok)
		assert.Nil(t, frame)
		assert.Zero(t, api.outstanding())
	}
}

func TestGDICaptureNoForegroundWindow(t *testing.T) {
	api := newFakeGDI()
	api.foreground = 0

	_, ok := newGDICapturer(api).CaptureWindow()
	assert.False(t, ok)
	assert.Zero(t, api.outstanding())
}

func TestGDICaptureReleasesOnEveryFailure(t *testing.T) {
	failures := map[string]func(*fakeGDI){
		"rect":   func(f *fakeGDI) { f.rectOK = false },
		"dc":     func(f *fakeGDI) { f.failDC = true },
		"bitmap": func(f *fakeGDI) { f.failBitmap = true },
		"print":  func(f *fakeGDI) { f.failPrint = true },
		"bits":   func(f *fakeGDI) { f.failBits = true },
	}

	for name, breakIt := range failures {
		t.Run(name, func(t *testing.T) {
			api := newFakeGDI()
			breakIt(api)
			c := newGDICapturer(api)

			// repeated failing calls must not accumulate handles
			for i := 0; i < 100; i++ {
				frame, ok := c.CaptureWindow()
				require.False(t, ok)
				require.Nil(t, frame)
			}
			assert.Zero(t, api.outstanding())
			assert.Empty(t, api.deletedLive)
		})
	}
}

func TestReleaseScopeRunsInReverse(t *testing.T) {
	var order []int
	var scope releaseScope
	scope.push(func() { order = append(order, 1) })
	scope.push(func() { order = append(order, 2) })
	scope.push(func() { order = append(order, 3) })
	scope.Close()
	scope.Close()

	assert.Equal(t, []int{3, 2, 1}, order)
}
