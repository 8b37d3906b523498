// Package serial abstracts the serial link between the controller and an
// operator pendant or console.
package serial

import (
	"io"
)

// Port represents a serial port. Implementations: native serial via
// github.com/tarm/serial, and in-memory ports for tests.
type Port interface {
	io.ReadWriteCloser

	// Flush drops any buffered data.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate.
	Baud int

	// ReadTimeout in milliseconds; 0 blocks. Pendant polling relies on a
	// short timeout so the main loop never stalls on a silent line.
	ReadTimeout int
}

// DefaultConfig returns the conventional pendant link settings.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 10,
	}
}
