package seestar

import (
	"encoding/json"
)

// Status is the aggregated view of the telescope built from events and
// refresh queries. The client hands out copies; nothing outside the
// client's reader mutates the live value.
type Status struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	ChargerStatus   *ChargerState   `json:"charger_status,omitempty"`
	ChargeOnline    *bool           `json:"charge_online,omitempty"`
	BatteryCapacity *int            `json:"battery_capacity,omitempty"`
	StackedFrames   int             `json:"stacked_frames"`
	DroppedFrames   int             `json:"dropped_frames"`
	TargetName      string          `json:"target_name"`
	Annotation      json.RawMessage `json:"annotation,omitempty"`
}

// Reset clears every field to its default.
func (s *Status) Reset() {
	*s = Status{}
}

// clone returns a deep copy so callers never share pointers with the
// live status.
func (s *Status) clone() Status {
	out := Status{
		StackedFrames: s.StackedFrames,
		DroppedFrames: s.DroppedFrames,
		TargetName:    s.TargetName,
	}
	if s.Temperature != nil {
		v := *s.Temperature
		out.Temperature = &v
	}
	if s.ChargerStatus != nil {
		v := *s.ChargerStatus
		out.ChargerStatus = &v
	}
	if s.ChargeOnline != nil {
		v := *s.ChargeOnline
		out.ChargeOnline = &v
	}
	if s.BatteryCapacity != nil {
		v := *s.BatteryCapacity
		out.BatteryCapacity = &v
	}
	if s.Annotation != nil {
		out.Annotation = append(json.RawMessage(nil), s.Annotation...)
	}
	return out
}

// mergePiStatus overwrites only the fields present in the report.
func (s *Status) mergePiStatus(p PiStatusReport) {
	if p.Temp != nil {
		v := *p.Temp
		s.Temperature = &v
	}
	if p.ChargerStatus != nil {
		v := *p.ChargerStatus
		s.ChargerStatus = &v
	}
	if p.ChargeOnline != nil {
		v := *p.ChargeOnline
		s.ChargeOnline = &v
	}
	if p.BatteryCapacity != nil {
		v := *p.BatteryCapacity
		s.BatteryCapacity = &v
	}
}

// apply folds an event into the status.
func (s *Status) apply(ev Event) {
	switch e := ev.(type) {
	case *PiStatusEvent:
		s.mergePiStatus(PiStatusReport{
			Temp:            e.Temp,
			ChargerStatus:   e.ChargerStatus,
			ChargeOnline:    e.ChargeOnline,
			BatteryCapacity: e.BatteryCapacity,
		})
	case *StackEvent:
		s.StackedFrames = e.StackedFrame
		s.DroppedFrames = e.DroppedFrame
	case *AnnotateEvent:
		s.Annotation = append(json.RawMessage(nil), e.Result...)
	case *UnknownEvent:
		// history only
	}
}

// PiStatusReport is the pi_status shape shared by the PiStatus event and
// the get_device_state result.
type PiStatusReport struct {
	Temp            *float64      `json:"temp"`
	ChargerStatus   *ChargerState `json:"charger_status"`
	ChargeOnline    *bool         `json:"charge_online"`
	BatteryCapacity *int          `json:"battery_capacity"`
}
