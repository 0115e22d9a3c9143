package seestar

import (
	"encoding/json"
)

// Event tags
const (
	EventPiStatus = "PiStatus"
	EventStack    = "Stack"
	EventAnnotate = "Annotate"
)

// ChargerState is the battery charger state reported by PiStatus.
type ChargerState string

const (
	ChargerDischarging ChargerState = "Discharging"
	ChargerCharging    ChargerState = "Charging"
	ChargerFull        ChargerState = "Full"
)

// Event is an unsolicited notification pushed by the telescope. The set of
// implementations is closed: *PiStatusEvent, *StackEvent, *AnnotateEvent
// and the catch-all *UnknownEvent.
type Event interface {
	// Kind returns the value of the Event discriminator.
	Kind() string
	// Time returns the device-supplied Timestamp, if any.
	Time() string

	isEvent()
}

type eventHeader struct {
	Tag       string `json:"Event"`
	Timestamp string `json:"Timestamp,omitempty"`
}

func (h eventHeader) Kind() string { return h.Tag }
func (h eventHeader) Time() string { return h.Timestamp }
func (eventHeader) isEvent()       {}

func (h *eventHeader) setHeader(v eventHeader) { *h = v }

// PiStatusEvent reports host board health. Absent fields are nil.
type PiStatusEvent struct {
	eventHeader
	Temp            *float64      `json:"temp,omitempty"`
	ChargerStatus   *ChargerState `json:"charger_status,omitempty"`
	ChargeOnline    *bool         `json:"charge_online,omitempty"`
	BatteryCapacity *int          `json:"battery_capacity,omitempty"`
}

// StackEvent reports live-stacking progress.
type StackEvent struct {
	eventHeader
	StackedFrame int `json:"stacked_frame"`
	DroppedFrame int `json:"dropped_frame"`
}

// AnnotateEvent carries a sky-recognition result.
type AnnotateEvent struct {
	eventHeader
	Result json.RawMessage `json:"result,omitempty"`
}

// UnknownEvent is any event whose tag is not modelled. Raw holds the whole
// line.
type UnknownEvent struct {
	eventHeader
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON emits the original payload.
func (e *UnknownEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return json.Marshal(e.eventHeader)
	}
	return e.Raw, nil
}

// parseEvent decodes a line already known to carry the Event key. The
// header is decoded by the caller, so Timestamp stays out of the typed
// unmarshal whatever its JSON type.
func parseEvent(line []byte, fields map[string]json.RawMessage, header eventHeader) (Event, error) {
	var ev interface {
		Event
		setHeader(eventHeader)
	}
	switch header.Tag {
	case EventPiStatus:
		ev = &PiStatusEvent{}
	case EventStack:
		ev = &StackEvent{}
	case EventAnnotate:
		ev = &AnnotateEvent{}
	default:
		raw := make(json.RawMessage, len(line))
		copy(raw, line)
		return &UnknownEvent{eventHeader: header, Raw: raw}, nil
	}

	delete(fields, "Timestamp")
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, ev); err != nil {
		return nil, err
	}
	ev.setHeader(header)
	return ev, nil
}
