package voice

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("voice controller closed")

// CaptureErrorKind classifies capture backend failures.
type CaptureErrorKind string

const (
	CaptureUnsupported      CaptureErrorKind = "unsupported"
	CapturePermissionDenied CaptureErrorKind = "permission-denied"
	CaptureAlreadyRunning   CaptureErrorKind = "already-running"
	CaptureNotRunning       CaptureErrorKind = "not-running"
	CaptureFailed           CaptureErrorKind = "failed"
)

// ParseCaptureErrorKind maps a backend reason string onto a known kind.
// Unknown reasons map to CaptureFailed.
func ParseCaptureErrorKind(reason string) CaptureErrorKind {
	switch CaptureErrorKind(reason) {
	case CaptureUnsupported, CapturePermissionDenied, CaptureAlreadyRunning, CaptureNotRunning:
		return CaptureErrorKind(reason)
	}
	switch reason {
	case "not-allowed", "service-not-allowed":
		return CapturePermissionDenied
	case "not-supported":
		return CaptureUnsupported
	}
	return CaptureFailed
}

// CaptureError reports a failure of the capture backend.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("capture: %s", e.Kind)
	}
	return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCaptureError builds a CaptureError.
func NewCaptureError(kind CaptureErrorKind, err error) *CaptureError {
	return &CaptureError{Kind: kind, Err: err}
}

// ResponderError reports a reply generation failure.
type ResponderError struct {
	Err error
}

func (e *ResponderError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("responder: %v", e.Err)
}

func (e *ResponderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SpeechError reports a playback failure of the speech sink.
type SpeechError struct {
	Text string
	Err  error
}

func (e *SpeechError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("speech: %v", e.Err)
}

func (e *SpeechError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// asCaptureError normalises any backend error into a *CaptureError.
func asCaptureError(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	return &CaptureError{Kind: CaptureFailed, Err: err}
}

// IsCaptureKind reports whether err is a CaptureError of the given kind.
func IsCaptureKind(err error, kind CaptureErrorKind) bool {
	var ce *CaptureError
	return errors.As(err, &ce) && ce.Kind == kind
}
