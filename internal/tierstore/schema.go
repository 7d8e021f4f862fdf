// Schema serialisation between record.Record and the CQL adapter's row
// format, per the column layout: id TEXT PK, content TEXT, context TEXT,
// tier TEXT, emotion TEXT, created_at BIGINT, last_accessed BIGINT,
// access_count INT, strength TEXT, embedding TEXT, tags TEXT,
// associations TEXT.
package tierstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coldforge/membrain/internal/record"
)

const (
	colID           = "id"
	colContent      = "content"
	colContext      = "context"
	colTier         = "tier"
	colEmotion      = "emotion"
	colCreatedAt    = "created_at"
	colLastAccessed = "last_accessed"
	colAccessCount  = "access_count"
	colStrength     = "strength"
	colEmbedding    = "embedding"
	colTags         = "tags"
	colAssociations = "associations"
)

var columnOrder = []string{
	colID, colContent, colContext, colTier, colEmotion,
	colCreatedAt, colLastAccessed, colAccessCount, colStrength,
	colEmbedding, colTags, colAssociations,
}

// toRow serialises r into the adapter's column->string map, in
// columnOrder, following the schema's exact coercion rules: embedding/tags
// as JSON arrays, strength as a decimal string, timestamps as epoch-millis.
func toRow(r *record.Record) (map[string]string, []string) {
	embeddingJSON, _ := json.Marshal(r.Embedding)
	tagsJSON, _ := json.Marshal(r.Tags)
	assocJSON, _ := json.Marshal(r.Associations)

	cols := map[string]string{
		colID:           r.ID,
		colContent:      r.Content,
		colContext:      r.Context,
		colTier:         string(r.Tier),
		colEmotion:      string(r.Emotion),
		colCreatedAt:    strconv.FormatInt(r.CreatedAt, 10),
		colLastAccessed: strconv.FormatInt(r.LastAccessed, 10),
		colAccessCount:  strconv.Itoa(r.AccessCount),
		colStrength:     strconv.FormatFloat(r.Strength, 'f', -1, 64),
		colEmbedding:    string(embeddingJSON),
		colTags:         string(tagsJSON),
		colAssociations: string(assocJSON),
	}
	return cols, columnOrder
}

// fromRow reconstructs a record.Record from an adapter column->value map.
func fromRow(cols map[string]string) (*record.Record, error) {
	r := &record.Record{
		ID:      cols[colID],
		Content: cols[colContent],
		Context: cols[colContext],
		Tier:    record.Tier(cols[colTier]),
		Emotion: record.Emotion(cols[colEmotion]),
	}
	var err error
	if r.CreatedAt, err = strconv.ParseInt(cols[colCreatedAt], 10, 64); err != nil {
		return nil, fmt.Errorf("tierstore: parse created_at: %w", err)
	}
	if r.LastAccessed, err = strconv.ParseInt(cols[colLastAccessed], 10, 64); err != nil {
		return nil, fmt.Errorf("tierstore: parse last_accessed: %w", err)
	}
	if r.AccessCount, err = strconv.Atoi(cols[colAccessCount]); err != nil {
		return nil, fmt.Errorf("tierstore: parse access_count: %w", err)
	}
	if r.Strength, err = strconv.ParseFloat(cols[colStrength], 64); err != nil {
		return nil, fmt.Errorf("tierstore: parse strength: %w", err)
	}
	if raw := cols[colEmbedding]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &r.Embedding); err != nil {
			return nil, fmt.Errorf("tierstore: parse embedding: %w", err)
		}
	}
	if raw := cols[colTags]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &r.Tags); err != nil {
			return nil, fmt.Errorf("tierstore: parse tags: %w", err)
		}
	}
	if raw := cols[colAssociations]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &r.Associations); err != nil {
			return nil, fmt.Errorf("tierstore: parse associations: %w", err)
		}
	}
	return r, nil
}
