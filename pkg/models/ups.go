// Package models pkg/models/ups.go
package models

import (
	"sort"
	"time"
)

// DeviceType selects the wire vocabulary spoken by the upstream telemetry
// service for a device.
type DeviceType string

const (
	TypeApcupsd DeviceType = "apcupsd"
	TypeNUT     DeviceType = "nut"
)

// ConnectionState describes where a device's connection manager is in its
// lifecycle. Owned exclusively by the connection manager.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed"
)

// UpsState is the normalized operating status of a UPS.
type UpsState string

const (
	UpsOnline     UpsState = "online"
	UpsOnBattery  UpsState = "on_battery"
	UpsLowBattery UpsState = "low_battery"
	UpsCharging   UpsState = "charging"
	UpsUnknown    UpsState = "unknown"
)

// StatusField names a single canonical metric for change tracking.
type StatusField string

const (
	FieldStatus             StatusField = "status"
	FieldBatteryCharge      StatusField = "battery_charge_pct"
	FieldTimeLeft           StatusField = "time_left_minutes"
	FieldInputVoltage       StatusField = "input_voltage"
	FieldOutputVoltage      StatusField = "output_voltage"
	FieldBatteryVoltage     StatusField = "battery_voltage"
	FieldLoad               StatusField = "load_pct"
	FieldRealPower          StatusField = "real_power_w"
	FieldInternalTemp       StatusField = "internal_temp_c"
	FieldInputFrequency     StatusField = "input_freq_hz"
	FieldOutputFrequency    StatusField = "output_freq_hz"
	FieldTimeOnBattery      StatusField = "time_on_battery_s"
	FieldCumTimeOnBattery   StatusField = "cumulative_time_on_battery_s"
	FieldBatteryCurrent     StatusField = "battery_current_a"
	FieldNumTransfers       StatusField = "num_transfers"
	FieldModel              StatusField = "model"
	FieldSerialNumber       StatusField = "serial_number"
)

// ChangeSet is the set of canonical fields whose value differs between two
// consecutive snapshots for one device.
type ChangeSet map[StatusField]struct{}

func (c ChangeSet) Add(f StatusField) {
	c[f] = struct{}{}
}

func (c ChangeSet) Contains(f StatusField) bool {
	_, ok := c[f]
	return ok
}

func (c ChangeSet) IsEmpty() bool {
	return len(c) == 0
}

// Fields returns the changed field names in stable order.
func (c ChangeSet) Fields() []StatusField {
	fields := make([]StatusField, 0, len(c))
	for f := range c {
		fields = append(fields, f)
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	return fields
}

// UpsStatus is one canonical snapshot of a UPS device. Numeric fields are
// pointers so that a metric a given protocol or device never reports stays
// distinguishable from a reported zero.
type UpsStatus struct {
	Status           UpsState  `json:"status,omitempty"`
	BatteryCharge    *float64  `json:"battery_charge_pct,omitempty"`
	TimeLeft         *float64  `json:"time_left_minutes,omitempty"`
	InputVoltage     *float64  `json:"input_voltage,omitempty"`
	OutputVoltage    *float64  `json:"output_voltage,omitempty"`
	BatteryVoltage   *float64  `json:"battery_voltage,omitempty"`
	Load             *float64  `json:"load_pct,omitempty"`
	RealPower        *float64  `json:"real_power_w,omitempty"`
	InternalTemp     *float64  `json:"internal_temp_c,omitempty"`
	InputFrequency   *float64  `json:"input_freq_hz,omitempty"`
	OutputFrequency  *float64  `json:"output_freq_hz,omitempty"`
	TimeOnBattery    *float64  `json:"time_on_battery_s,omitempty"`
	CumTimeOnBattery *float64  `json:"cumulative_time_on_battery_s,omitempty"`
	BatteryCurrent   *float64  `json:"battery_current_a,omitempty"`
	NumTransfers     *int64    `json:"num_transfers,omitempty"`
	Model            string    `json:"model,omitempty"`
	SerialNumber     string    `json:"serial_number,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Clone returns a deep copy of the snapshot.
func (s *UpsStatus) Clone() *UpsStatus {
	if s == nil {
		return nil
	}

	out := *s
	out.BatteryCharge = cloneFloat(s.BatteryCharge)
	out.TimeLeft = cloneFloat(s.TimeLeft)
	out.InputVoltage = cloneFloat(s.InputVoltage)
	out.OutputVoltage = cloneFloat(s.OutputVoltage)
	out.BatteryVoltage = cloneFloat(s.BatteryVoltage)
	out.Load = cloneFloat(s.Load)
	out.RealPower = cloneFloat(s.RealPower)
	out.InternalTemp = cloneFloat(s.InternalTemp)
	out.InputFrequency = cloneFloat(s.InputFrequency)
	out.OutputFrequency = cloneFloat(s.OutputFrequency)
	out.TimeOnBattery = cloneFloat(s.TimeOnBattery)
	out.CumTimeOnBattery = cloneFloat(s.CumTimeOnBattery)
	out.BatteryCurrent = cloneFloat(s.BatteryCurrent)

	if s.NumTransfers != nil {
		v := *s.NumTransfers
		out.NumTransfers = &v
	}

	return &out
}

// Diff returns the set of fields whose value differs from prev. A nil prev
// marks every present field as changed. Equality is exact per field; the
// store is a change detector, not a filter. ObservedAt is bookkeeping, not a
// metric, and never appears in a ChangeSet.
func (s *UpsStatus) Diff(prev *UpsStatus) ChangeSet {
	changes := make(ChangeSet)

	if prev == nil {
		prev = &UpsStatus{}
	}

	if s.Status != prev.Status {
		changes.Add(FieldStatus)
	}

	floatDiffs := []struct {
		field    StatusField
		cur, old *float64
	}{
		{FieldBatteryCharge, s.BatteryCharge, prev.BatteryCharge},
		{FieldTimeLeft, s.TimeLeft, prev.TimeLeft},
		{FieldInputVoltage, s.InputVoltage, prev.InputVoltage},
		{FieldOutputVoltage, s.OutputVoltage, prev.OutputVoltage},
		{FieldBatteryVoltage, s.BatteryVoltage, prev.BatteryVoltage},
		{FieldLoad, s.Load, prev.Load},
		{FieldRealPower, s.RealPower, prev.RealPower},
		{FieldInternalTemp, s.InternalTemp, prev.InternalTemp},
		{FieldInputFrequency, s.InputFrequency, prev.InputFrequency},
		{FieldOutputFrequency, s.OutputFrequency, prev.OutputFrequency},
		{FieldTimeOnBattery, s.TimeOnBattery, prev.TimeOnBattery},
		{FieldCumTimeOnBattery, s.CumTimeOnBattery, prev.CumTimeOnBattery},
		{FieldBatteryCurrent, s.BatteryCurrent, prev.BatteryCurrent},
	}

	for _, d := range floatDiffs {
		if !floatPtrEqual(d.cur, d.old) {
			changes.Add(d.field)
		}
	}

	if !int64PtrEqual(s.NumTransfers, prev.NumTransfers) {
		changes.Add(FieldNumTransfers)
	}

	if s.Model != prev.Model {
		changes.Add(FieldModel)
	}

	if s.SerialNumber != prev.SerialNumber {
		changes.Add(FieldSerialNumber)
	}

	return changes
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	out := *v

	return &out
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Notification carries one change event to a subscriber.
type Notification struct {
	DeviceID string
	Status   *UpsStatus
	Changed  ChangeSet
}
