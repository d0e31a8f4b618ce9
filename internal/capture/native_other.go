//go:build !windows && !linux

package capture

import "runtime"

func newPlatformNativeCapturer() NativeCapturer {
	return unavailableCapturer{reason: "no window capture primitive on " + runtime.GOOS}
}
