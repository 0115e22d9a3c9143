package seestar

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Method is the tag selecting one request shape from the command catalog.
type Method string

// Command catalog
const (
	MethodGetAnnotatedResult Method = "get_annotated_result"
	MethodGetCameraInfo      Method = "get_camera_info"
	MethodGetCameraState     Method = "get_camera_state"
	MethodGetDeviceState     Method = "get_device_state"
	MethodGetDiskVolume      Method = "get_disk_volume"
	MethodGetFocuserPosition Method = "get_focuser_position"
	MethodGetLastSolveResult Method = "get_last_solve_result"
	MethodGetSolveResult     Method = "get_solve_result"
	MethodGetStackInfo       Method = "get_stack_info"
	MethodGetTime            Method = "pi_get_time"
	MethodGetUserLocation    Method = "get_user_location"
	MethodGetViewState       Method = "get_view_state"
	MethodGetWheelPosition   Method = "get_wheel_position"
	MethodGetWheelSetting    Method = "get_wheel_setting"
	MethodGetWheelState      Method = "get_wheel_state"
	MethodScopeGetEquCoord   Method = "scope_get_equ_coord"
	MethodScopeGetRaDecCoord Method = "scope_get_ra_dec"
	MethodGetSetting         Method = "get_setting"
	MethodGetStackSetting    Method = "get_stack_setting"
	MethodSetSetting         Method = "set_setting"
	MethodSetControlValue    Method = "set_control_value"
	MethodScopePark          Method = "scope_park"
	MethodStartAutoFocus     Method = "start_auto_focuse"
	MethodStopAutoFocus      Method = "stop_auto_focuse"
	MethodStartSolve         Method = "start_solve"
	MethodIscopeStartStack   Method = "iscope_start_stack"
	MethodIscopeStopView     Method = "iscope_stop_view"
	MethodScopeSetTrackState Method = "scope_set_track_state"
)

// StopStage names the stage iscope_stop_view should stop.
type StopStage string

const (
	StageDarkLibrary StopStage = "DarkLibrary"
	StageStack       StopStage = "Stack"
	StageAutoGoto    StopStage = "AutoGoto"
)

// Command is an outbound request. An ID of zero means unset; the client
// assigns the next id when sending and writes it back into the command.
type Command struct {
	ID     int    `json:"id"`
	Method Method `json:"method"`
	Params any    `json:"params,omitempty"`
}

// NewCommand builds a command for method with optional params.
func NewCommand(method Method, params any) *Command {
	return &Command{Method: method, Params: params}
}

// StartStackParams are the params of iscope_start_stack.
type StartStackParams struct {
	Restart bool `json:"restart"`
}

// NewStartStack starts (or restarts) live stacking.
func NewStartStack(restart bool) *Command {
	return NewCommand(MethodIscopeStartStack, StartStackParams{Restart: restart})
}

// NewStopView stops the given stage.
func NewStopView(stage StopStage) *Command {
	return NewCommand(MethodIscopeStopView, map[string]StopStage{"stage": stage})
}

// NewSetTrackState enables or disables sidereal tracking.
func NewSetTrackState(enabled bool) *Command {
	return NewCommand(MethodScopeSetTrackState, enabled)
}

// NewSetControlValue sets a camera control, e.g. ("gain", 80).
func NewSetControlValue(name string, value int) *Command {
	return NewCommand(MethodSetControlValue, []any{name, value})
}

// ExposureSettings holds exposure lengths in milliseconds.
type ExposureSettings struct {
	StackL     *int `json:"stack_l,omitempty"`
	Continuous *int `json:"continuous,omitempty"`
}

// DitherSettings configures stacking dither.
type DitherSettings struct {
	Pix      *int  `json:"pix,omitempty"`
	Interval *int  `json:"interval,omitempty"`
	Enable   *bool `json:"enable,omitempty"`
}

// SettingParams are the params of set_setting. Nil fields are left
// untouched on the device.
type SettingParams struct {
	ExpMs               *ExposureSettings `json:"exp_ms,omitempty"`
	AeBriPercent        *int              `json:"ae_bri_percent,omitempty"`
	StackDither         *DitherSettings   `json:"stack_dither,omitempty"`
	SaveDiscreteFrame   *bool             `json:"save_discrete_frame,omitempty"`
	SaveDiscreteOkFrame *bool             `json:"save_discrete_ok_frame,omitempty"`
	Auto3PPACalib       *bool             `json:"auto_3ppa_calib,omitempty"`
}

// NewSetSetting updates device settings.
func NewSetSetting(p SettingParams) *Command {
	return NewCommand(MethodSetSetting, p)
}

const noParamsSchema = `{"type": "null"}`

// catalog maps every known method to the JSON Schema of its params.
var catalog = map[Method]string{
	MethodGetAnnotatedResult: noParamsSchema,
	MethodGetCameraInfo:      noParamsSchema,
	MethodGetCameraState:     noParamsSchema,
	MethodGetDeviceState:     noParamsSchema,
	MethodGetDiskVolume:      noParamsSchema,
	MethodGetFocuserPosition: noParamsSchema,
	MethodGetLastSolveResult: noParamsSchema,
	MethodGetSolveResult:     noParamsSchema,
	MethodGetStackInfo:       noParamsSchema,
	MethodGetTime:            noParamsSchema,
	MethodGetUserLocation:    noParamsSchema,
	MethodGetViewState:       noParamsSchema,
	MethodGetWheelPosition:   noParamsSchema,
	MethodGetWheelSetting:    noParamsSchema,
	MethodGetWheelState:      noParamsSchema,
	MethodScopeGetEquCoord:   noParamsSchema,
	MethodScopeGetRaDecCoord: noParamsSchema,
	MethodGetSetting:         noParamsSchema,
	MethodGetStackSetting:    noParamsSchema,
	MethodScopePark:          noParamsSchema,
	MethodStartAutoFocus:     noParamsSchema,
	MethodStopAutoFocus:      noParamsSchema,
	MethodStartSolve:         noParamsSchema,

	MethodIscopeStartStack: `{
		"type": ["object", "null"],
		"properties": {"restart": {"type": "boolean"}},
		"additionalProperties": false
	}`,
	MethodIscopeStopView: `{
		"type": ["object", "null"],
		"properties": {"stage": {"enum": ["DarkLibrary", "Stack", "AutoGoto"]}},
		"additionalProperties": false
	}`,
	MethodScopeSetTrackState: `{"type": "boolean"}`,
	MethodSetControlValue: `{
		"type": "array",
		"prefixItems": [{"type": "string"}, {"type": "integer"}],
		"minItems": 2,
		"maxItems": 2
	}`,
	MethodSetSetting: `{
		"type": "object",
		"properties": {
			"exp_ms": {
				"type": "object",
				"properties": {
					"stack_l": {"type": "integer", "minimum": 0},
					"continuous": {"type": "integer", "minimum": 0}
				},
				"additionalProperties": false
			},
			"ae_bri_percent": {"type": "integer", "minimum": 0, "maximum": 100},
			"stack_dither": {
				"type": "object",
				"properties": {
					"pix": {"type": "integer", "minimum": 0},
					"interval": {"type": "integer", "minimum": 0},
					"enable": {"type": "boolean"}
				},
				"additionalProperties": false
			},
			"save_discrete_frame": {"type": "boolean"},
			"save_discrete_ok_frame": {"type": "boolean"},
			"auto_3ppa_calib": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
}

// ParamsSchema returns the JSON Schema for the params of method.
func ParamsSchema(method Method) (json.RawMessage, error) {
	s, ok := catalog[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return json.RawMessage(s), nil
}

// Methods lists the catalog in lexical order.
func Methods() []Method {
	methods := make([]Method, 0, len(catalog))
	for m := range catalog {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
