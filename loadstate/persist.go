package loadstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/ringbuf"
	"github.com/CrescendoLabs/FeedKit/storage"
	"github.com/CrescendoLabs/FeedKit/version"
)

// snapshotDoc is the persisted form of machine state.
type snapshotDoc struct {
	SchemaVersion string             `json:"schema_version"`
	SessionID     string             `json:"session_id,omitempty"`
	CurrentState  string             `json:"current_state"`
	LastValid     string             `json:"last_valid_state"`
	ErrorCount    int                `json:"error_count"`
	LastErrorAt   time.Time          `json:"last_error_at"`
	SavedAt       time.Time          `json:"saved_at"`
	History       []TransitionRecord `json:"history,omitempty"`
}

// snapshotSchema validates persisted snapshots before they are trusted.
const snapshotSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["schema_version", "current_state", "last_valid_state"],
	"properties": {
		"schema_version":   {"type": "string"},
		"session_id":       {"type": "string"},
		"current_state":    {"type": "string"},
		"last_valid_state": {"type": "string"},
		"error_count":      {"type": "integer", "minimum": 0},
		"last_error_at":    {"type": "string"},
		"saved_at":         {"type": "string"},
		"history": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["from", "to", "timestamp"],
				"properties": {
					"from":      {"type": "string"},
					"to":        {"type": "string"},
					"reason":    {"type": "string"},
					"timestamp": {"type": "string"},
					"metadata":  {"type": "object"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

var snapshotSchemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// persistLocked writes the current state to the storage slot. Failures are
// logged as warnings; the machine keeps operating in memory. Callers must
// hold mu.
func (m *Machine) persistLocked() {
	if m.store == nil {
		return
	}

	doc := snapshotDoc{
		SchemaVersion: version.SnapshotSchemaVersion,
		SessionID:     m.sessionID,
		CurrentState:  string(m.current),
		LastValid:     string(m.lastValid),
		ErrorCount:    m.errorCount,
		LastErrorAt:   m.lastErrorAt,
		SavedAt:       m.timeFunc(),
		History:       m.history.Snapshot(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		logger.Persistence("write", m.storageKey, err)
		return
	}
	if err := m.store.Set(context.Background(), m.storageKey, data); err != nil {
		logger.Persistence("write", m.storageKey, err)
		return
	}

	logger.Persistence("write", m.storageKey, nil)
	m.emitter.StateSaved("loadstate", m.storageKey)
}

// restore loads a persisted snapshot at construction. Anything invalid
// leaves the construction defaults in place.
func (m *Machine) restore() {
	data, err := m.store.Get(context.Background(), m.storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Persistence("read", m.storageKey, err)
		}
		return
	}

	doc, err := decodeSnapshot(data)
	if err != nil {
		logger.Warn("discarding persisted load state", "key", m.storageKey, "error", err)
		return
	}

	m.current = State(doc.CurrentState)
	m.lastValid = State(doc.LastValid)
	m.errorCount = doc.ErrorCount
	m.lastErrorAt = doc.LastErrorAt
	m.history = ringbuf.New[TransitionRecord](historyCap)
	for _, record := range doc.History {
		m.history.Push(record)
	}
	m.sequence = len(doc.History)

	logger.Persistence("read", m.storageKey, nil)
	m.emitter.StateLoaded("loadstate", m.storageKey)
}

// decodeSnapshot validates raw snapshot bytes against the JSON schema and
// the machine's own invariants before accepting them.
func decodeSnapshot(data []byte) (*snapshotDoc, error) {
	result, err := gojsonschema.Validate(snapshotSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}
		return nil, fmt.Errorf("snapshot does not match schema: %s", strings.Join(descs, "; "))
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if err := version.CompatibleSchema(doc.SchemaVersion); err != nil {
		return nil, err
	}
	if !State(doc.CurrentState).Known() {
		return nil, fmt.Errorf("unknown persisted state %q", doc.CurrentState)
	}
	if !State(doc.LastValid).Known() {
		return nil, fmt.Errorf("unknown persisted last valid state %q", doc.LastValid)
	}
	if State(doc.LastValid) == StateError {
		return nil, errors.New("persisted last valid state is the error state")
	}

	return &doc, nil
}
