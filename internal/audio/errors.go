package audio

import "errors"

// Start-time errors abort a capture start; tick-time errors are reported
// as status events and the scheduler carries on.
var (
	ErrNoDevice            = errors.New("no capture device")
	ErrDeviceOpenFailed    = errors.New("capture device open failed")
	ErrNoDeviceFormat      = errors.New("no supported capture format")
	ErrReadFailed          = errors.New("capture read failed")
	ErrPositionQueryFailed = errors.New("capture position query failed")
	ErrLockFailed          = errors.New("capture buffer lock failed")
)
