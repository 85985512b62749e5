package bridge

import "errors"

var (
	ErrUnknownDevice     = errors.New("unknown device")
	ErrDeviceExists      = errors.New("device already configured")
	ErrNotConnected      = errors.New("device is not connected")
	ErrNotFailed         = errors.New("device is not in failed state")
	ErrRefreshThrottled  = errors.New("refresh request throttled")
	ErrAuthRejected      = errors.New("authentication rejected by upstream")
	ErrAlreadyStarted    = errors.New("connection manager already started")
	ErrDuplicateDeviceID = errors.New("duplicate device id in configuration")
	ErrNoDevices         = errors.New("no devices configured")
)
