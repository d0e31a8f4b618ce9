package capture

// NewNativeCapturer returns the window capturer for this platform, or a stub
// reporting Available() == false where no primitive exists.
func NewNativeCapturer() NativeCapturer {
	return newPlatformNativeCapturer()
}

// unavailableCapturer stands in on platforms without a window capture primitive
type unavailableCapturer struct {
	reason string
}

func (u unavailableCapturer) CaptureWindow() (*Frame, bool) { return nil, false }
func (u unavailableCapturer) Available() bool               { return false }
func (u unavailableCapturer) Name() string                  { return "unavailable (" + u.reason + ")" }

// releaseScope runs cleanups in reverse acquisition order. Acquire each
// native resource, push its release, and defer Close once.
type releaseScope struct {
	cleanups []func()
}

func (s *releaseScope) push(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

func (s *releaseScope) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}
