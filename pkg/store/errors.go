package store

import "errors"

var (
	ErrDeviceNotFound = errors.New("no snapshot stored for device")
)
