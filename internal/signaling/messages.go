package signaling

import (
	"encoding/json"
	"time"
)

type messageType string

const (
	messageTypeConnection messageType = "connection"
	messageTypeError      messageType = "error"
)

// welcomeMessage is the first frame every admitted client receives.
type welcomeMessage struct {
	Type       messageType `json:"type"`
	ClientID   string      `json:"clientId"`
	WebRTCPort int         `json:"webrtcPort"`
	Message    string      `json:"message"`
	Timestamp  string      `json:"timestamp"`
}

// errorMessage is sent before a connection is refused.
type errorMessage struct {
	Type      messageType `json:"type"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func encodeWelcome(clientID string, port int, now time.Time) ([]byte, error) {
	return json.Marshal(welcomeMessage{
		Type:       messageTypeConnection,
		ClientID:   clientID,
		WebRTCPort: port,
		Message:    welcomeText,
		Timestamp:  formatTimestamp(now),
	})
}

func encodeRefusal(now time.Time) ([]byte, error) {
	return json.Marshal(errorMessage{
		Type:      messageTypeError,
		Message:   refusalText,
		Timestamp: formatTimestamp(now),
	})
}
