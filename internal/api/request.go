package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanchriswhite/viewcapture/internal/capture"
	"github.com/bryanchriswhite/viewcapture/internal/config"
)

// Error kinds reported to callers
const (
	ErrorKindValidation = "validation_error"
	ErrorKindCapture    = "capture_error"
)

// CaptureRequest is the body of a capture call. Absent fields take defaults.
type CaptureRequest struct {
	Target    string `json:"target,omitempty"`
	MaxWidth  *int   `json:"maxWidth,omitempty"`
	MaxHeight *int   `json:"maxHeight,omitempty"`
}

// CaptureResponse is returned for every capture call, successful or not
type CaptureResponse struct {
	Success   bool   `json:"success"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message"`
	ImageData string `json:"imageData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// Defaults fill in absent request fields
type Defaults struct {
	Target    string
	MaxWidth  int
	MaxHeight int
}

// DefaultsFrom reads request defaults from the capture config
func DefaultsFrom(cfg config.CaptureConfig) Defaults {
	return Defaults{
		Target:    cfg.DefaultTarget,
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
	}
}

// ValidationError marks a request the transport rejected before capturing
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseRequest decodes a JSON capture request. An empty body is a request
// with every field defaulted.
func ParseRequest(body []byte) (CaptureRequest, error) {
	var req CaptureRequest
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, &ValidationError{Err: fmt.Errorf("malformed request: %w", err)}
	}
	return req, nil
}

// Resolve applies defaults, validates the target and clamps the bounds
func (r CaptureRequest) Resolve(d Defaults) (capture.Target, capture.Bounds, error) {
	name := r.Target
	if name == "" {
		name = d.Target
	}
	target, err := capture.ParseTarget(name)
	if err != nil {
		return "", capture.Bounds{}, &ValidationError{Err: err}
	}

	bounds := capture.Bounds{
		MaxWidth:  clamp(valueOr(r.MaxWidth, d.MaxWidth, capture.MaxBoundWidth), capture.MinBound, capture.MaxBoundWidth),
		MaxHeight: clamp(valueOr(r.MaxHeight, d.MaxHeight, capture.MaxBoundHeight), capture.MinBound, capture.MaxBoundHeight),
	}
	return target, bounds, nil
}

func valueOr(v *int, def, fallback int) int {
	if v != nil {
		return *v
	}
	if def > 0 {
		return def
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Execute runs one request against c and always returns a response value
func Execute(c Capturer, req CaptureRequest, d Defaults) CaptureResponse {
	target, bounds, err := req.Resolve(d)
	if err != nil {
		return FailureResponse(err)
	}

	res, err := c.Capture(target, bounds)
	if err != nil {
		return FailureResponse(err)
	}
	return SuccessResponse(res)
}

// SuccessResponse wraps an encoded capture
func SuccessResponse(res *capture.Result) CaptureResponse {
	return CaptureResponse{
		Success:   true,
		Type:      "image",
		Message:   res.Description,
		ImageData: base64.StdEncoding.EncodeToString(res.PNG),
		MimeType:  "image/png",
		Width:     res.Width,
		Height:    res.Height,
	}
}

// FailureResponse converts any error into a response without image data
func FailureResponse(err error) CaptureResponse {
	return CaptureResponse{
		Success:   false,
		Message:   err.Error(),
		ErrorKind: ErrorKind(err),
	}
}

// ErrorKind classifies err for callers
func ErrorKind(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) || errors.Is(err, capture.ErrInvalidBounds) {
		return ErrorKindValidation
	}
	return ErrorKindCapture
}
