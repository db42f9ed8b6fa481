package scan

import "errors"

var (
	// ErrLiveActive rejects a static scan while live capture is running.
	ErrLiveActive = errors.New("live capture is running")
	// ErrLiveRunning is returned by Start when capture is already on.
	ErrLiveRunning = errors.New("live capture already started")
	ErrLoadImage   = errors.New("cannot load image")
	ErrBadSettings = errors.New("invalid settings")
)
