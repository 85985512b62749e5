// Package protocol decodes raw telemetry frames from the two supported wire
// vocabularies (apcupsd and NUT) into the canonical UpsStatus record.
//
// Decoding is pure and stateless: no I/O, no shared state, identical output
// for identical input. Unknown or unparseable sub-fields are dropped
// individually; only a structurally invalid frame fails the whole decode.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

// Decode transforms a raw frame into a canonical snapshot. The configured
// device type selects the grammar; there is no auto-detection. The returned
// snapshot carries a zero ObservedAt, the caller stamps it on receipt.
func Decode(deviceType models.DeviceType, frame []byte) (*models.UpsStatus, error) {
	switch deviceType {
	case models.TypeApcupsd:
		return decodeApcupsd(frame)
	case models.TypeNUT:
		return decodeNUT(frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDeviceType, deviceType)
	}
}

// RefreshFrame returns the protocol-defined request that asks the upstream
// service for an immediate status report over an existing connection.
func RefreshFrame(deviceType models.DeviceType) ([]byte, error) {
	switch deviceType {
	case models.TypeApcupsd:
		// The NIS command vocabulary: a bare "status" line.
		return []byte("status"), nil
	case models.TypeNUT:
		return []byte(`{"command":"refresh"}`), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDeviceType, deviceType)
	}
}

// parseUpsState maps a raw status string from either vocabulary onto the
// canonical state enum. Tokens follow apcupsd ("ONLINE", "ONBATT", "LOWBATT")
// and NUT ("OL", "OB", "LB", "OL CHRG") conventions.
func parseUpsState(raw string) models.UpsState {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return models.UpsUnknown
	}

	tokens := strings.Fields(upper)

	switch {
	case hasToken(tokens, "LB") || strings.Contains(upper, "LOWBATT"):
		return models.UpsLowBattery
	case hasToken(tokens, "OB") || strings.Contains(upper, "ONBATT") ||
		strings.Contains(upper, "ON BATTERY"):
		return models.UpsOnBattery
	case hasToken(tokens, "CHRG") || strings.Contains(upper, "CHARG"):
		return models.UpsCharging
	case hasToken(tokens, "OL") || strings.Contains(upper, "ONLINE"):
		return models.UpsOnline
	default:
		return models.UpsUnknown
	}
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}

	return false
}

// parseLeadingFloat extracts the numeric part of a value such as
// "100.0 Percent" or "230.4 Volts". The unit suffix is informational only;
// apcupsd and the NUT bridge both report values already normalized to
// volts/hertz/percent.
func parseLeadingFloat(raw string) (float64, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
