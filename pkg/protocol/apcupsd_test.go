package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

const apcupsdFrame = `APC      : 001,036,0879
STATUS   : ONLINE
LINEV    : 230.1 Volts
LOADPCT  : 12.5 Percent
BCHARGE  : 100.0 Percent
TIMELEFT : 42.0 Minutes
BATTV    : 27.3 Volts
OUTPUTV  : 229.8 Volts
NOMPOWER : 865 Watts
ITEMP    : 29.1 C
LINEFREQ : 50.0 Hz
TONBATT  : 0 Seconds
CUMONBATT: 120 Seconds
NUMXFERS : 3
MODEL    : Smart-UPS 1500
SERIALNO : AS1234567890
`

func TestDecodeApcupsd(t *testing.T) {
	status, err := Decode(models.TypeApcupsd, []byte(apcupsdFrame))
	require.NoError(t, err)

	assert.Equal(t, models.UpsOnline, status.Status)

	require.NotNil(t, status.BatteryCharge)
	assert.InDelta(t, 100.0, *status.BatteryCharge, 0.001)

	require.NotNil(t, status.TimeLeft)
	assert.InDelta(t, 42.0, *status.TimeLeft, 0.001)

	require.NotNil(t, status.InputVoltage)
	assert.InDelta(t, 230.1, *status.InputVoltage, 0.001)

	require.NotNil(t, status.OutputVoltage)
	assert.InDelta(t, 229.8, *status.OutputVoltage, 0.001)

	require.NotNil(t, status.BatteryVoltage)
	assert.InDelta(t, 27.3, *status.BatteryVoltage, 0.001)

	require.NotNil(t, status.Load)
	assert.InDelta(t, 12.5, *status.Load, 0.001)

	// Derived from NOMPOWER and LOADPCT.
	require.NotNil(t, status.RealPower)
	assert.InDelta(t, 108.125, *status.RealPower, 0.001)

	require.NotNil(t, status.InternalTemp)
	assert.InDelta(t, 29.1, *status.InternalTemp, 0.001)

	require.NotNil(t, status.InputFrequency)
	assert.InDelta(t, 50.0, *status.InputFrequency, 0.001)

	require.NotNil(t, status.TimeOnBattery)
	assert.InDelta(t, 0.0, *status.TimeOnBattery, 0.001)

	require.NotNil(t, status.CumTimeOnBattery)
	assert.InDelta(t, 120.0, *status.CumTimeOnBattery, 0.001)

	require.NotNil(t, status.NumTransfers)
	assert.Equal(t, int64(3), *status.NumTransfers)

	assert.Equal(t, "Smart-UPS 1500", status.Model)
	assert.Equal(t, "AS1234567890", status.SerialNumber)

	assert.True(t, status.ObservedAt.IsZero(), "decoder must not stamp ObservedAt")
}

func TestDecodeApcupsdStates(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  models.UpsState
	}{
		{"online", "STATUS : ONLINE", models.UpsOnline},
		{"on battery", "STATUS : ONBATT", models.UpsOnBattery},
		{"low battery", "STATUS : ONBATT LOWBATT", models.UpsLowBattery},
		{"charging", "STATUS : ONLINE CHARGING", models.UpsCharging},
		{"comms lost", "STATUS : COMMLOST", models.UpsUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := Decode(models.TypeApcupsd, []byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Status)
		})
	}
}

func TestDecodeApcupsdPartialFrames(t *testing.T) {
	t.Run("unparseable value is dropped individually", func(t *testing.T) {
		frame := "STATUS : ONLINE\nBCHARGE : garbage\nLOADPCT : 40.0 Percent\n"

		status, err := Decode(models.TypeApcupsd, []byte(frame))
		require.NoError(t, err)

		assert.Equal(t, models.UpsOnline, status.Status)
		assert.Nil(t, status.BatteryCharge)
		require.NotNil(t, status.Load)
		assert.InDelta(t, 40.0, *status.Load, 0.001)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		frame := "STATUS : ONBATT\nHOSTNAME : ups-host\n"

		status, err := Decode(models.TypeApcupsd, []byte(frame))
		require.NoError(t, err)
		assert.Equal(t, models.UpsOnBattery, status.Status)
	})

	t.Run("absent metrics stay nil", func(t *testing.T) {
		status, err := Decode(models.TypeApcupsd, []byte("STATUS : ONLINE"))
		require.NoError(t, err)

		assert.Nil(t, status.BatteryCharge)
		assert.Nil(t, status.RealPower)
		assert.Nil(t, status.NumTransfers)
	})
}

func TestDecodeApcupsdMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"empty frame", ""},
		{"no key value lines", "this frame has no separators at all"},
		{"only blank lines", "\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(models.TypeApcupsd, []byte(tt.frame))
			require.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}
