package commands

import (
	"fmt"
	"runtime"

	"github.com/bryanchriswhite/viewcapture/internal/capture"
	"github.com/bryanchriswhite/viewcapture/internal/capture/portal"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/window"
)

// app wires the window backend, the readers and the orchestrator
type app struct {
	configMgr    *config.Manager
	backend      window.Backend
	resolver     *window.Resolver
	orchestrator *capture.Orchestrator
	portal       *portal.Screenshot
}

func newApp(configMgr *config.Manager) (*app, error) {
	log := logger.WithComponent("app")
	cfg := configMgr.Get()

	backend, err := window.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to window system: %w", err)
	}
	log.Debug().Str("backend", backend.Name()).Msg("Window backend connected")

	a := &app{
		configMgr: configMgr,
		backend:   backend,
		resolver:  window.NewResolver(backend, configMgr),
	}

	var opts []capture.ScreenReaderOption
	if cfg.Capture.UsePortal && runtime.GOOS == "linux" {
		p, err := portal.NewScreenshot()
		if err != nil {
			log.Warn().Err(err).Msg("Desktop portal not available, screen readback has no fallback")
		} else {
			a.portal = p
			opts = append(opts, capture.WithFallbackGrabber(p.Grab))
		}
	}

	native := capture.NewNativeCapturer()
	log.Debug().
		Str("native", native.Name()).
		Bool("available", native.Available()).
		Msg("Native window capturer")

	a.orchestrator = capture.NewOrchestrator(
		a.resolver,
		capture.NewScreenReader(opts...),
		native,
		capture.NewEncoder(cfg.Capture.PNGCompression),
	)
	return a, nil
}

func (a *app) Close() {
	if a.portal != nil {
		a.portal.Close()
	}
	a.backend.Close()
}
