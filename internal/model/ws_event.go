package model

// WSEventType names a WebSocket event
type WSEventType string

const (
	WSEventAlertTriggered WSEventType = "alert_triggered"
	WSEventConnected      WSEventType = "connected"
)

// WSEvent is the envelope for every WebSocket frame
type WSEvent struct {
	Type    WSEventType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
