// Package protocol pkg/protocol/nut.go
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

// decodeNUT parses a JSON object frame. Keys may be flat snake_case names
// ("battery_charge") or NUT dotted variable names ("battery.charge"); both
// vocabularies map onto the same canonical record. Anything that is not a
// JSON object is structurally invalid.
func decodeNUT(frame []byte) (*models.UpsStatus, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	// Unmarshal leaves the map nil for a JSON null, which would otherwise
	// pass as an all-absent snapshot and wipe the stored one.
	if fields == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedFrame)
	}

	status := &models.UpsStatus{Status: models.UpsUnknown}

	var xonBattery bool

	for key, raw := range fields {
		applyNUTField(status, &xonBattery, normalizeNUTKey(key), raw)
	}

	// An explicit on-battery flag overrides a stale status token, matching
	// apcupsd's XONBATT semantics on the NUT side of the bridge.
	if xonBattery && status.Status != models.UpsLowBattery {
		status.Status = models.UpsOnBattery
	}

	return status, nil
}

func normalizeNUTKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), ".", "_")
}

func applyNUTField(status *models.UpsStatus, xonBattery *bool, key string, raw interface{}) {
	switch key {
	case "status", "ups_status":
		if s, ok := raw.(string); ok {
			status.Status = parseUpsState(s)
		}
	case "xon_battery":
		*xonBattery = truthy(raw)
	case "model", "ups_model", "device_model":
		if s, ok := raw.(string); ok {
			status.Model = s
		}
	case "serial_number", "serialno", "ups_serial", "device_serial":
		if s, ok := raw.(string); ok {
			status.SerialNumber = s
		}
	case "num_transfers", "number_transfers":
		if v, ok := numericValue(raw); ok {
			n := int64(v)
			status.NumTransfers = &n
		}
	case "battery_runtime", "time_left":
		// Reported in seconds; canonical unit is minutes.
		if v, ok := numericValue(raw); ok {
			minutes := v / 60
			status.TimeLeft = &minutes
		}
	case "time_left_minutes":
		if v, ok := numericValue(raw); ok {
			status.TimeLeft = &v
		}
	default:
		applyNUTMetric(status, key, raw)
	}
}

func applyNUTMetric(status *models.UpsStatus, key string, raw interface{}) {
	v, ok := numericValue(raw)
	if !ok {
		return
	}

	switch key {
	case "battery_charge", "battery_charge_pct":
		status.BatteryCharge = &v
	case "load", "load_percentage", "ups_load":
		status.Load = &v
	case "input_voltage":
		status.InputVoltage = &v
	case "output_voltage":
		status.OutputVoltage = &v
	case "battery_voltage":
		status.BatteryVoltage = &v
	case "real_power", "ups_realpower":
		status.RealPower = &v
	case "temperature", "internal_temperature", "ups_temperature":
		status.InternalTemp = &v
	case "input_frequency":
		status.InputFrequency = &v
	case "output_frequency":
		status.OutputFrequency = &v
	case "time_on_battery":
		status.TimeOnBattery = &v
	case "cumulative_time_on_battery":
		status.CumTimeOnBattery = &v
	case "battery_current":
		status.BatteryCurrent = &v
	}
}

// numericValue accepts JSON numbers and numeric strings; some NUT bridges
// quote every variable value.
func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

func truthy(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			return true
		}
	}

	return false
}
