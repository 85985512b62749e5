package protocol

import "errors"

var (
	ErrMalformedFrame        = errors.New("malformed frame")
	ErrUnsupportedDeviceType = errors.New("unsupported device type")
)
