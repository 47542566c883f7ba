package ws

import (
	"encoding/json"
)

// Server to client event types
const (
	EventMarketUpdate     = "marketUpdate"
	EventNewInsights      = "newInsights"
	EventAnalysisComplete = "analysisComplete"
	EventPositionUpdate   = "positionUpdate"
	EventChatMessages     = "chatMessages"
)

// Event is the envelope of every message pushed to a client
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewEvent creates an event
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}

// Encode marshals the event to its wire form
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// clientMessage is a message sent by the browser
type clientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}
