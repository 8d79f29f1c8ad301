// Package protocol defines the wire format for the POS scanner relay channel.
// The relay pushes JSON messages tagged by a "type" field; this package is the
// only place that sees raw payload bytes; everything above it works with
// typed InboundEvents.
package protocol

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Inbound event kinds pushed by the relay.
const (
	EventBarcode        = "barcode"
	EventScannerStatus  = "scanner_status"
	EventConnection     = "connection"
	EventHeartbeat      = "heartbeat"
	EventError          = "error"
	EventServerShutdown = "server_shutdown"
)

// Scanner/relay status values carried by scanner_status and connection events.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// InboundEvent is a decoded relay message. Type is always set; the remaining
// fields are populated depending on the kind:
//
//	barcode        → Code
//	scanner_status → Status ("connected" | "disconnected")
//	connection     → Status ("connected")
//	error          → Message
//	heartbeat, server_shutdown → no payload
//
// Unknown Type values decode successfully and are ignored by the dispatcher.
type InboundEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// codeFieldRe extracts the quoted value of a "code" key from text that is not
// well-formed JSON. Best-effort recovery only, see Decode.
var codeFieldRe = regexp.MustCompile(`"code"\s*:\s*"([^"]+)"`)

// Decode normalizes a raw relay payload into an InboundEvent.
//
// The payload may be textual JSON or binary-wrapped JSON; both arrive here as
// bytes and are treated as UTF-8 text. Strict JSON parsing is attempted first,
// and a well-formed payload is taken at face value even when its type is
// unknown or missing. Only if strict parsing fails and the text mentions
// "barcode" or "code" is a barcode event synthesized from a regex-extracted
// code value: the relay occasionally emits payloads that are not well-formed
// JSON, and losing a scan is worse than tolerating a sloppy frame. Anything
// else is a decode error; callers log and drop, never surface.
func Decode(data []byte) (*InboundEvent, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("payload is not valid UTF-8 (%d bytes)", len(data))
	}

	var ev InboundEvent
	if err := json.Unmarshal(data, &ev); err == nil {
		if ev.Type == "" {
			return nil, fmt.Errorf("relay payload has no type field")
		}
		return &ev, nil
	}

	text := string(data)
	if strings.Contains(text, "barcode") || strings.Contains(text, "code") {
		if m := codeFieldRe.FindStringSubmatch(text); m != nil {
			return &InboundEvent{Type: EventBarcode, Code: m[1]}, nil
		}
	}

	return nil, fmt.Errorf("undecodable relay payload (%d bytes)", len(data))
}
