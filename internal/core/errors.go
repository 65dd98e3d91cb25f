// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, wrapped with fmt.Errorf("%w") by the packages that raise them.
var (
	// Configuration errors are fatal at startup and never retried.
	ErrConfigInvalid = errors.New("rtpreplay: invalid configuration")

	// Packet errors
	ErrMalformedPacket = errors.New("rtpreplay: malformed packet")

	// Capture errors
	ErrStreamExhausted = errors.New("rtpreplay: capture exhausted")
	ErrCaptureRead     = errors.New("rtpreplay: capture read error")
	ErrEmptyCapture    = errors.New("rtpreplay: capture traversal yielded no packets")

	// Sink errors
	ErrSinkSend = errors.New("rtpreplay: send failed")
)
