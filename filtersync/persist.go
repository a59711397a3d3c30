package filtersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/storage"
	"github.com/CrescendoLabs/FeedKit/version"
)

// filterDoc is the persisted form of the synchronizer state.
type filterDoc struct {
	SchemaVersion string           `json:"schema_version"`
	SessionID     string           `json:"session_id,omitempty"`
	Search        SearchFilters    `json:"search"`
	Dashboard     DashboardFilters `json:"dashboard"`
	SavedAt       time.Time        `json:"saved_at"`
}

const filterSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["schema_version", "search", "dashboard", "saved_at"],
	"properties": {
		"schema_version": {"type": "string"},
		"session_id":     {"type": "string"},
		"saved_at":       {"type": "string"},
		"search": {
			"type": "object",
			"properties": {
				"query":      {"type": "string"},
				"post_type":  {"type": "string"},
				"sort_by":    {"type": "string"},
				"time_range": {"type": "string"}
			},
			"additionalProperties": false
		},
		"dashboard": {
			"type": "object",
			"required": ["post_type", "sort_by", "time_range"],
			"properties": {
				"post_type":  {"type": "string"},
				"sort_by":    {"type": "string"},
				"time_range": {"type": "string"}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`

var filterSchemaLoader = gojsonschema.NewStringLoader(filterSchema)

// persistLocked writes the latest snapshot to the storage slot. Failures
// are warnings; the synchronizer keeps operating in memory. Callers must
// hold mu.
func (s *Synchronizer) persistLocked() {
	if s.store == nil {
		return
	}

	doc := filterDoc{
		SchemaVersion: version.SnapshotSchemaVersion,
		SessionID:     s.sessionID,
		Search:        s.search,
		Dashboard:     s.dashboard,
		SavedAt:       s.timeFunc(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		logger.Persistence("write", s.storageKey, err)
		return
	}
	if err := s.store.Set(context.Background(), s.storageKey, data); err != nil {
		logger.Persistence("write", s.storageKey, err)
		return
	}

	logger.Persistence("write", s.storageKey, nil)
	s.emitter.StateSaved("filtersync", s.storageKey)
}

// restore loads a persisted snapshot at construction. Stale or invalid
// snapshots are discarded silently and the defaults kept.
func (s *Synchronizer) restore() {
	data, err := s.store.Get(context.Background(), s.storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Persistence("read", s.storageKey, err)
		}
		return
	}

	doc, err := decodeFilterDoc(data)
	if err != nil {
		logger.Warn("discarding persisted filter state", "key", s.storageKey, "error", err)
		return
	}

	age := s.timeFunc().Sub(doc.SavedAt)
	if age >= s.staleWindow {
		logger.Debug("discarding stale filter snapshot", "key", s.storageKey, "age", age)
		return
	}

	s.search = doc.Search
	s.dashboard = doc.Dashboard.withDefaults()

	logger.Persistence("read", s.storageKey, nil)
	s.emitter.StateLoaded("filtersync", s.storageKey)
}

// decodeFilterDoc validates raw snapshot bytes against the JSON schema and
// the schema version gate.
func decodeFilterDoc(data []byte) (*filterDoc, error) {
	result, err := gojsonschema.Validate(filterSchemaLoader, gojsonschema.NewBytesLoader(data))
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

	var doc filterDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := version.CompatibleSchema(doc.SchemaVersion); err != nil {
		return nil, err
	}
	return &doc, nil
}
