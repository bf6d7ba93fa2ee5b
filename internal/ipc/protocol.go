package ipc

import (
	"encoding/json"
	"fmt"

	"focustrack/internal/analytics"
)

const SocketPath = "/tmp/focustrack.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"` // Optional data in response
}

// --- Command Argument Structs ---

type DurationArgs struct {
	Minutes int `json:"minutes"`
}

type TagArgs struct {
	Tag string `json:"tag"`
}

type ChartArgs struct {
	Period string `json:"period"` // weekly, monthly, yearly, lifetime
}

// timer_start, timer_pause, timer_reset, timer_status, preset_list,
// stats and celebration_ack take no arguments.

// --- Command Names (Constants) ---

const (
	CmdPing           = "ping" // Simple health check
	CmdTimerStart     = "timer_start"
	CmdTimerPause     = "timer_pause"
	CmdTimerReset     = "timer_reset"
	CmdTimerDuration  = "timer_duration"
	CmdTimerTag       = "timer_tag"
	CmdTimerStatus    = "timer_status"
	CmdPresetAdd      = "preset_add"
	CmdPresetRemove   = "preset_remove"
	CmdPresetList     = "preset_list"
	CmdStats          = "stats"
	CmdChart          = "chart"
	CmdCelebrationAck = "celebration_ack"
)

// --- Response Data ---

type StatusData struct {
	State              string  `json:"state"`
	RemainingSecs      float64 `json:"remaining_secs"`
	InitialMinutes     int     `json:"initial_minutes"`
	Tag                string  `json:"tag"`
	EndsAtUnixMs       int64   `json:"ends_at_unix_ms,omitempty"`
	TodayMinutes       int     `json:"today_minutes"`
	CelebrationPending bool    `json:"celebration_pending"`
}

type PresetsData struct {
	Minutes []int `json:"minutes"`
}

type ChartData struct {
	Period  analytics.Period           `json:"period"`
	Points  []analytics.ChartDataPoint `json:"points"`
	Insight analytics.Insight          `json:"insight"`
}

// DecodeArgs re-decodes the generic Args of a received command into a
// typed argument struct.
func DecodeArgs(cmd Command, out interface{}) error {
	if cmd.Args == nil {
		return fmt.Errorf("command %s: missing arguments", cmd.Name)
	}
	raw, err := json.Marshal(cmd.Args)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd.Name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("command %s: invalid arguments: %w", cmd.Name, err)
	}
	return nil
}

// DecodeData re-decodes the generic Data of a response, the client-side
// counterpart of DecodeArgs.
func DecodeData(resp Response, out interface{}) error {
	if resp.Data == nil {
		return fmt.Errorf("response has no data")
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
