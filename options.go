package filemagic

import (
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the number of leading bytes scanned for signatures.
const DefaultBufferSize = 1024

// Option configures a Detector
type Option func(*Detector)

// WithRegistry replaces the built-in signature table.
func WithRegistry(r *Registry) Option {
	return func(d *Detector) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithBufferSize sets how many leading bytes are scanned. Values below 1
// are ignored.
func WithBufferSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.bufferSize = n
		}
	}
}

// WithContainerReread controls whether the zip path rewinds the source and
// reads the prefix again before scanning for OpenDocument markers.
// Enabled by default. When disabled the buffer from the first read is reused.
func WithContainerReread(enabled bool) Option {
	return func(d *Detector) {
		d.reread = enabled
	}
}

// WithContainerOpener replaces the zip reader used for Office inspection.
func WithContainerOpener(open ContainerOpener) Option {
	return func(d *Detector) {
		if open != nil {
			d.openContainer = open
		}
	}
}

// WithLogger sets the logger used for debug tracing of match decisions.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}
