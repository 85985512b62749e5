// Package models pkg/models/device.go
package models

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceIDRequired   = errors.New("device id is required")
	ErrDeviceHostRequired = errors.New("device host is required")
	ErrUnknownDeviceType  = errors.New("unknown device type")
)

// DeviceConfig identifies one monitored UPS device. Immutable once created;
// configuration changes tear down and recreate the connection manager rather
// than mutating one in place.
type DeviceConfig struct {
	ID          string     `json:"id"`
	Type        DeviceType `json:"type"`
	DisplayName string     `json:"display_name,omitempty"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	Username    string     `json:"username,omitempty"`
	Password    string     `json:"password,omitempty"`
}

func (c *DeviceConfig) Validate() error {
	if c.ID == "" {
		return ErrDeviceIDRequired
	}

	if c.Host == "" {
		return fmt.Errorf("device %s: %w", c.ID, ErrDeviceHostRequired)
	}

	switch c.Type {
	case TypeApcupsd, TypeNUT:
	default:
		return fmt.Errorf("device %s: %w: %q", c.ID, ErrUnknownDeviceType, c.Type)
	}

	return nil
}
