package portal

import (
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/godbus/dbus/v5"
	xdraw "golang.org/x/image/draw"
)

// Portal D-Bus constants
const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// DefaultTimeout bounds how long a screenshot request may wait for the portal
const DefaultTimeout = 10 * time.Second

// Screenshot reads the screen through xdg-desktop-portal, for sessions where
// the display server refuses direct readback (Wayland)
type Screenshot struct {
	conn    *dbus.Conn
	timeout time.Duration
	seq     atomic.Uint64
	mu      sync.Mutex
}

// NewScreenshot connects to the session bus
func NewScreenshot() (*Screenshot, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	s := &Screenshot{
		conn:    conn,
		timeout: DefaultTimeout,
	}

	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		logger.WithComponent("portal").Warn().Err(err).Msg("Failed to add match rule")
	}

	return s, nil
}

// Close closes the bus connection
func (s *Screenshot) Close() error {
	return s.conn.Close()
}

// Grab takes a full-screen screenshot and returns the rect portion of it. Its
// signature matches capture.RegionGrabber.
func (s *Screenshot) Grab(rect image.Rectangle) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("portal")

	uri, err := s.request()
	if err != nil {
		return nil, err
	}

	path, err := pathFromURI(uri)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Portal screenshot received")

	return crop(img, rect)
}

// request asks the portal for a non-interactive screenshot and returns its URI
func (s *Screenshot) request() (string, error) {
	log := logger.WithComponent("portal")
	obj := s.conn.Object(portalService, portalPath)

	token := fmt.Sprintf("viewcapture%d_%d", os.Getpid(), s.seq.Add(1))
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(false),
	}

	// Set up response channel BEFORE making the call
	responseChan := make(chan *dbus.Signal, 10)
	s.conn.Signal(responseChan)
	defer s.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.Call(screenshotIface+".Screenshot", 0, "", options).Store(&requestPath); err != nil {
		return "", fmt.Errorf("Screenshot call failed: %w", err)
	}

	log.Debug().Str("request_path", string(requestPath)).Msg("Waiting for Screenshot response")

	timeout := time.After(s.timeout)
	for {
		select {
		case <-timeout:
			return "", fmt.Errorf("timeout waiting for Screenshot response")
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			return parseResponse(sig.Body)
		}
	}
}

// parseResponse extracts the screenshot URI from a Request.Response body
func parseResponse(body []interface{}) (string, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("invalid response")
	}

	response, ok := body[0].(uint32)
	if !ok {
		return "", fmt.Errorf("unexpected response code type: %T", body[0])
	}
	if response != 0 {
		return "", fmt.Errorf("screenshot denied (code %d)", response)
	}

	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("unexpected results type: %T", body[1])
	}

	v, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("no uri in response")
	}
	uri, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected uri type: %T", v.Value())
	}
	return uri, nil
}

func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid screenshot uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported screenshot uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// crop copies rect out of img into a zero-origin RGBA image
func crop(img image.Image, rect image.Rectangle) (*image.RGBA, error) {
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("region %v outside screenshot %v", rect, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(out, out.Bounds(), img, rect.Min, xdraw.Src)
	return out, nil
}
