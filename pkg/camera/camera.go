// Package camera provides frame sources for live scanning.
package camera

import (
	"errors"
	"image"
)

var (
	// ErrUnavailable means no capture device could be opened.
	ErrUnavailable = errors.New("camera unavailable")
	ErrClosed      = errors.New("source closed")
)

// Source delivers frames one at a time.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// Config selects and sizes the capture device.
type Config struct {
	// Device is a fixed index; a negative value probes for one.
	Device int
	// Probe is how many indices are tried when probing.
	Probe  int
	Width  int
	Height int
}

// probeOrder lists device indices to try: external cameras (1..n-1) before
// the built-in index 0.
func probeOrder(cfg Config) []int {
	if cfg.Device >= 0 {
		return []int{cfg.Device}
	}
	n := max(cfg.Probe, 1)
	out := make([]int, 0, n)
	for i := 1; i < n; i++ {
		out = append(out, i)
	}
	return append(out, 0)
}
