package amqp

import (
	"encoding/json"
	"time"

	"donorboard/internal/core"
)

// DatasetLoadedMessage announces that a donor table became active for a
// session. It carries metadata only, never donor rows.
type DatasetLoadedMessage struct {
	SessionID string    `json:"session_id"`
	TableID   string    `json:"table_id"`
	Source    string    `json:"source"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetLoadedMessage describes t as loaded for sessionID.
func NewDatasetLoadedMessage(sessionID string, t *core.Table) *DatasetLoadedMessage {
	return &DatasetLoadedMessage{
		SessionID: sessionID,
		TableID:   t.ID,
		Source:    t.Source,
		Format:    string(t.Format),
		Rows:      t.Len(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetLoadedMessageFromJSON decodes a message body.
func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
