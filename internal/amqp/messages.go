package amqp

import (
	"encoding/json"
	"time"
)

// ImportStatementMessage carries a raw CSV statement to the import
// worker. The worker parses and categorizes the rows before storing
// them, so the message stays a dumb envelope.
type ImportStatementMessage struct {
	SessionID string    `json:"session_id"`
	CSV       string    `json:"csv"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportStatementMessage(sessionID, csv string) *ImportStatementMessage {
	return &ImportStatementMessage{
		SessionID: sessionID,
		CSV:       csv,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportStatementMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func ImportStatementMessageFromJSON(data []byte) (*ImportStatementMessage, error) {
	var msg ImportStatementMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
