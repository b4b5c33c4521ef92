package capture

import (
	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// sourceBackend defines the device-specific half of a Source.
type sourceBackend interface {
	// Open starts the device with the given configuration.
	Open(cfg sourceConfig) error

	// ReadFrame returns the latest frame without blocking on the device.
	ReadFrame() (*common.Frame, bool)

	// Size returns the delivered frame dimensions.
	Size() (int, int)

	// Dropped returns how many frames were overwritten before being read.
	Dropped() uint64

	// Close stops the device.
	Close() error
}
