package ipc

import (
	"encoding/json"
	"testing"

	"focustrack/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip mimics the socket: typed value in, generic JSON value out.
func roundTrip(t *testing.T, v interface{}, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestDecodeArgs(t *testing.T) {
	var received Command
	roundTrip(t, Command{Name: CmdTimerDuration, Args: DurationArgs{Minutes: 50}}, &received)

	var args DurationArgs
	require.NoError(t, DecodeArgs(received, &args))
	assert.Equal(t, 50, args.Minutes)
}

func TestDecodeArgsErrors(t *testing.T) {
	var args DurationArgs
	assert.Error(t, DecodeArgs(Command{Name: CmdTimerDuration}, &args))

	err := DecodeArgs(Command{Name: CmdTimerDuration, Args: map[string]interface{}{"minutes": "fifty"}}, &args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments")
}

func TestDecodeData(t *testing.T) {
	var received Response
	roundTrip(t, Response{Success: true, Data: ChartData{
		Period: analytics.PeriodWeekly,
		Points: []analytics.ChartDataPoint{{Label: "Today", Value: 30, IsCurrentBucket: true}},
	}}, &received)

	var data ChartData
	require.NoError(t, DecodeData(received, &data))
	assert.Equal(t, analytics.PeriodWeekly, data.Period)
	require.Len(t, data.Points, 1)
	assert.True(t, data.Points[0].IsCurrentBucket)

	assert.Error(t, DecodeData(Response{Success: true}, &data))
}
