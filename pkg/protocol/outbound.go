package protocol

import "time"

// Outbound message types sent by the POS side of the channel.
const (
	TypePing                = "ping"
	TypeConnectionConfirmed = "connection_confirmed"
	TypeHeartbeatResponse   = "heartbeat_response"
)

// Ping is the periodic keep-alive sent while the channel is open.
type Ping struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewPing creates a keep-alive message stamped with the current time.
func NewPing() Ping {
	return Ping{Type: TypePing, Timestamp: now()}
}

// DeviceInfo identifies the POS device in the connection handshake ack.
type DeviceInfo struct {
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
	Type      string `json:"type"` // always "pos"
}

// ConnectionConfirmed acknowledges the relay's connection event.
type ConnectionConfirmed struct {
	Type       string     `json:"type"`
	SessionID  string     `json:"sessionId"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
	Timestamp  string     `json:"timestamp"`
}

// NewConnectionConfirmed builds the ack for a pairing session.
func NewConnectionConfirmed(sessionID string, info DeviceInfo) ConnectionConfirmed {
	info.Type = "pos"
	return ConnectionConfirmed{
		Type:       TypeConnectionConfirmed,
		SessionID:  sessionID,
		DeviceInfo: info,
		Timestamp:  now(),
	}
}

// HeartbeatResponse answers a relay heartbeat probe.
type HeartbeatResponse struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewHeartbeatResponse creates a heartbeat reply stamped with the current time.
func NewHeartbeatResponse() HeartbeatResponse {
	return HeartbeatResponse{Type: TypeHeartbeatResponse, Timestamp: now()}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
