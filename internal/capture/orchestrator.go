package capture

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
)

// Orchestrator picks a capture strategy per target, applies the fallback
// order and turns the pixels into an encoded Result
type Orchestrator struct {
	resolver SurfaceResolver
	reader   SurfaceReader
	native   NativeCapturer
	encoder  *Encoder
	mu       sync.Mutex
}

// NewOrchestrator creates an orchestrator over the given capabilities
func NewOrchestrator(resolver SurfaceResolver, reader SurfaceReader, native NativeCapturer, encoder *Encoder) *Orchestrator {
	if native == nil {
		native = unavailableCapturer{reason: "not configured"}
	}
	if encoder == nil {
		encoder = NewEncoder(config.CompressionDefault)
	}
	return &Orchestrator{
		resolver: resolver,
		reader:   reader,
		native:   native,
		encoder:  encoder,
	}
}

// Native returns the native window capturer in use
func (o *Orchestrator) Native() NativeCapturer {
	return o.native
}

// Capture captures target and fits it within bounds. Calls are serialized.
func (o *Orchestrator) Capture(target Target, bounds Bounds) (*Result, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	log := logger.WithComponent("orchestrator")

	var (
		frame    *Frame
		strategy string
		label    string
		err      error
	)
	switch target {
	case TargetScene, TargetGame:
		frame, err = o.captureSurface(target)
		strategy = o.reader.Name()
		if frame != nil {
			label = fmt.Sprintf("%s '%s'", target.Title(), frame.Window.Label())
		}
	case TargetEditor:
		frame, strategy, label, err = o.captureEditor()
	default:
		_, err = ParseTarget(string(target))
		return nil, err
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("target", string(target)).
			Str("kind", KindOf(err).String()).
			Msg("Capture failed")
		return nil, err
	}

	srcW, srcH := frame.Buffer.Width, frame.Buffer.Height
	buf := frame.Buffer
	outW, outH, scaled := FitWithin(srcW, srcH, bounds)
	if scaled {
		if buf, err = Scale(buf, outW, outH); err != nil {
			return nil, fmt.Errorf("scale %dx%d to %dx%d: %w", srcW, srcH, outW, outH, err)
		}
	}

	data, err := o.encoder.Encode(buf)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("%s captured at %dx%d via %s", label, srcW, srcH, strategy)
	if scaled {
		description += fmt.Sprintf(", scaled to %dx%d", outW, outH)
	}

	log.Info().
		Str("target", string(target)).
		Str("strategy", strategy).
		Str("window", frame.Window.Label()).
		Int("source_width", srcW).
		Int("source_height", srcH).
		Int("width", buf.Width).
		Int("height", buf.Height).
		Int("bytes", len(data)).
		Msg("Captured")

	return &Result{
		PNG:          data,
		Description:  description,
		Width:        buf.Width,
		Height:       buf.Height,
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Strategy:     strategy,
		Window:       frame.Window,
	}, nil
}

// captureSurface resolves a scene or game view, repaints it and reads it back
func (o *Orchestrator) captureSurface(target Target) (*Frame, error) {
	log := logger.WithComponent("orchestrator")

	window, err := o.resolver.Resolve(target)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, newFailure(KindNoActiveSurface, nil, "%s is not open", target.Title())
	}

	if err := o.resolver.Repaint(window); err != nil {
		log.Debug().Err(err).Str("window", window.Label()).Msg("Repaint failed, reading possibly stale pixels")
	}

	buf, err := o.readWindow(window)
	if err != nil {
		return nil, err
	}
	return &Frame{Buffer: buf, Window: window}, nil
}

// captureEditor resolves the editor window, brings it forward and tries the
// native window capturer on it. When that yields nothing or a different
// window, the focused window is read from the screen instead.
func (o *Orchestrator) captureEditor() (*Frame, string, string, error) {
	log := logger.WithComponent("orchestrator")

	editor, err := o.resolver.Resolve(TargetEditor)
	if err != nil {
		return nil, "", "", err
	}
	if editor == nil {
		return nil, "", "", newFailure(KindNoActiveSurface, nil, "%s is not open", TargetEditor.Title())
	}

	// the native primitive captures the foreground window
	if err := o.resolver.Repaint(editor); err != nil {
		log.Debug().Err(err).Str("window", editor.Label()).Msg("Failed to activate editor window")
	}

	if o.native.Available() {
		frame, ok := o.native.CaptureWindow()
		switch {
		case !ok || frame == nil || frame.Buffer == nil:
			log.Debug().Str("capturer", o.native.Name()).Msg("Native capture returned nothing, falling back to focused window")
		case frame.Window == nil || frame.Window.ID != editor.ID:
			log.Debug().
				Str("capturer", o.native.Name()).
				Str("editor", editor.Label()).
				Str("captured", frame.Window.Label()).
				Msg("Native capture got another window, falling back to focused window")
		default:
			label := fmt.Sprintf("%s '%s'", TargetEditor.Title(), frame.Window.Label())
			return frame, o.native.Name(), label, nil
		}
	} else {
		log.Debug().Str("capturer", o.native.Name()).Msg("Native capture unavailable, falling back to focused window")
	}

	focused, err := o.resolver.FocusedWindow()
	if err != nil || focused == nil {
		return nil, "", "", newFailure(KindNoActiveSurface, err, "no focused window to fall back to")
	}

	buf, err := o.readWindow(focused)
	if err != nil {
		kind := KindNativeAPIFailed
		if !o.native.Available() {
			kind = KindNativeAPIUnavailable
		}
		return nil, "", "", newFailure(kind, err, "%s and focused window readback both failed", o.native.Name())
	}

	label := fmt.Sprintf("Focused window '%s'", focused.Label())
	return &Frame{Buffer: buf, Window: focused}, o.reader.Name(), label, nil
}

func (o *Orchestrator) readWindow(window *config.WindowInfo) (*pixel.Buffer, error) {
	g := window.Geometry
	return o.reader.ReadSurfacePixels(window, g.X, g.Y, g.Width, g.Height)
}
