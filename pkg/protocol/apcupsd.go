// Package protocol pkg/protocol/apcupsd.go
package protocol

import (
	"fmt"
	"strings"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

// decodeApcupsd parses a text frame of apcaccess-style "KEY : VALUE" lines.
// A frame without a single parseable key/value line is structurally invalid.
func decodeApcupsd(frame []byte) (*models.UpsStatus, error) {
	status := &models.UpsStatus{Status: models.UpsUnknown}

	var (
		parsed   int
		nomPower *float64
	)

	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		if key == "" {
			continue
		}

		parsed++

		applyApcupsdField(status, &nomPower, key, value)
	}

	if parsed == 0 {
		return nil, fmt.Errorf("%w: no key/value lines in apcupsd frame", ErrMalformedFrame)
	}

	// apcupsd reports nominal wattage, not instantaneous draw; with the load
	// percentage the real power follows.
	if status.RealPower == nil && nomPower != nil && status.Load != nil {
		watts := *nomPower * *status.Load / 100
		status.RealPower = &watts
	}

	return status, nil
}

func applyApcupsdField(status *models.UpsStatus, nomPower **float64, key, value string) {
	switch key {
	case "STATUS":
		status.Status = parseUpsState(value)
	case "MODEL":
		status.Model = value
	case "SERIALNO":
		status.SerialNumber = value
	case "NUMXFERS":
		if v, ok := parseLeadingFloat(value); ok {
			n := int64(v)
			status.NumTransfers = &n
		}
	default:
		applyApcupsdMetric(status, nomPower, key, value)
	}
}

func applyApcupsdMetric(status *models.UpsStatus, nomPower **float64, key, value string) {
	v, ok := parseLeadingFloat(value)
	if !ok {
		// Unparseable sub-field: dropped, the rest of the frame stands.
		return
	}

	switch key {
	case "BCHARGE":
		status.BatteryCharge = &v
	case "TIMELEFT":
		status.TimeLeft = &v
	case "LINEV":
		status.InputVoltage = &v
	case "OUTPUTV":
		status.OutputVoltage = &v
	case "BATTV":
		status.BatteryVoltage = &v
	case "LOADPCT":
		status.Load = &v
	case "NOMPOWER":
		*nomPower = &v
	case "ITEMP":
		status.InternalTemp = &v
	case "LINEFREQ":
		status.InputFrequency = &v
	case "OUTFREQ":
		status.OutputFrequency = &v
	case "TONBATT":
		status.TimeOnBattery = &v
	case "CUMONBATT":
		status.CumTimeOnBattery = &v
	case "BATTAMPS":
		status.BatteryCurrent = &v
	}
}
