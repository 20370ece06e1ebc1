//go:build !linux || !cgo

package alsa

import "fmt"

type stubDetector struct{}

func newPlatformDetector() Detector {
	return &stubDetector{}
}

// ListCards returns an error on unsupported platforms.
func (d *stubDetector) ListCards() ([]Card, error) {
	return nil, fmt.Errorf("sound card enumeration not supported on this platform")
}
