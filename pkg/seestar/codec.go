package seestar

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the marker every command response carries.
const JSONRPCVersion = "2.0"

// CommandResponse is the synchronous reply to a Command.
type CommandResponse struct {
	ID        int             `json:"id"`
	JSONRPC   string          `json:"jsonrpc"`
	Timestamp string          `json:"Timestamp,omitempty"`
	Method    string          `json:"method"`
	Code      int             `json:"code"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error,omitempty"`
}

// IsOK reports whether the telescope accepted the command.
func (r *CommandResponse) IsOK() bool {
	return r.Code == 0
}

// DecodeResult unmarshals the result payload into v.
func (r *CommandResponse) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("%s: empty result", r.Method)
	}
	return json.Unmarshal(r.Result, v)
}

// Message is one decoded inbound line: exactly one of Response and Event
// is set.
type Message struct {
	Response *CommandResponse
	Event    Event
}

// Encode serializes cmd to a single line of JSON without the terminator.
func Encode(cmd *Command) ([]byte, error) {
	if cmd.Method == "" {
		return nil, fmt.Errorf("encode: command has no method")
	}
	return json.Marshal(cmd)
}

// wireResponse mirrors CommandResponse with pointers so missing required
// fields can be told apart from zero values.
type wireResponse struct {
	ID        *int            `json:"id"`
	JSONRPC   *string         `json:"jsonrpc"`
	Timestamp json.RawMessage `json:"Timestamp"`
	Method    *string         `json:"method"`
	Code      *int            `json:"code"`
	Result    json.RawMessage `json:"result"`
	Error     json.RawMessage `json:"error"`
}

// Decode parses an inbound line. Lines carrying the Event key become
// events, with unknown tags falling back to *UnknownEvent; otherwise the
// jsonrpc marker is required and the line must be a complete
// CommandResponse.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Message{}, &DecodeError{Line: string(line), Reason: "invalid JSON", Cause: err}
	}

	if rawTag, ok := fields["Event"]; ok {
		var header eventHeader
		if err := json.Unmarshal(rawTag, &header.Tag); err != nil {
			return Message{}, &DecodeError{Line: string(line), Reason: "event tag is not a string", Event: true, Cause: err}
		}
		header.Timestamp = flattenString(fields["Timestamp"])
		ev, err := parseEvent(line, fields, header)
		if err != nil {
			return Message{}, &DecodeError{Line: string(line), Reason: "malformed " + header.Tag + " event", Event: true, Cause: err}
		}
		return Message{Event: ev}, nil
	}

	if _, ok := fields["jsonrpc"]; !ok {
		return Message{}, &DecodeError{Line: string(line), Reason: "line is neither an event nor a response"}
	}

	var w wireResponse
	if err := json.Unmarshal(line, &w); err != nil {
		return Message{}, &DecodeError{Line: string(line), Reason: "malformed response", Cause: err}
	}

	var missing []string
	if w.ID == nil {
		missing = append(missing, "id")
	}
	if w.Method == nil {
		missing = append(missing, "method")
	}
	if w.Code == nil {
		missing = append(missing, "code")
	}
	if _, ok := fields["result"]; !ok {
		missing = append(missing, "result")
	}
	if len(missing) > 0 {
		return Message{}, &DecodeError{Line: string(line), Reason: fmt.Sprintf("response missing %v", missing)}
	}

	resp := &CommandResponse{
		ID:        *w.ID,
		Timestamp: flattenString(w.Timestamp),
		Method:    *w.Method,
		Code:      *w.Code,
		Result:    w.Result,
		Error:     flattenString(w.Error),
	}
	if w.JSONRPC != nil {
		resp.JSONRPC = *w.JSONRPC
	}
	return Message{Response: resp}, nil
}

// flattenString renders an optional field that the firmware sends either
// as a string or as some other JSON value.
func flattenString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
