// Package snapshot encodes the plant collection as a versioned JSON document
// and decodes it back, migrating older layouts and skipping bad records.
//
// Current layout (schema version 1):
//
//	{
//	  "schemaVersion": 1,
//	  "plants": [
//	    {"id": "...", "name": "...", "wateringFrequencyDays": 6,
//	     "lastWateredAt": "2024-01-15T10:30:00Z", "imageUri": null}
//	  ]
//	}
//
// Version 0 is the persisted store of the original mobile app:
//
//	{"state": {"plants": [{"id": "1", "name": "...", "wateringFrequencyDays": 6,
//	  "lastWateredAtTimestamp": 1705314600000, "imageUri": "file:///..."}]}, "version": 0}
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"plantly/internal/model"
	"plantly/internal/plantly"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

type document struct {
	SchemaVersion int      `json:"schemaVersion"`
	Plants        []record `json:"plants"`
}

type record struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	WateringFrequencyDays int     `json:"wateringFrequencyDays"`
	LastWateredAt         string  `json:"lastWateredAt"`
	ImageURI              *string `json:"imageUri"`
}

// Result is the outcome of Decode.
type Result struct {
	Plants  []*model.Plant
	Version int // schema version found in the document
	Skipped int // records dropped because they failed to decode or validate
}

// Encode serializes plants in the current schema.
func Encode(plants []*model.Plant) ([]byte, error) {
	doc := document{
		SchemaVersion: CurrentVersion,
		Plants:        make([]record, 0, len(plants)),
	}
	for _, p := range plants {
		r := record{
			ID:                    p.ID,
			Name:                  p.Name,
			WateringFrequencyDays: p.WateringFrequencyDays,
			LastWateredAt:         p.LastWateredAt.UTC().Format(time.RFC3339Nano),
		}
		if p.ImageURI != "" {
			uri := p.ImageURI
			r.ImageURI = &uri
		}
		doc.Plants = append(doc.Plants, r)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// envelope matches every layout Decode understands.
type envelope struct {
	SchemaVersion *int              `json:"schemaVersion"`
	Plants        []json.RawMessage `json:"plants"`
	LegacyVersion *int              `json:"version"`
	LegacyState   *struct {
		Plants []json.RawMessage `json:"plants"`
	} `json:"state"`
}

// Decode parses a snapshot of any known version. A document whose envelope
// cannot be parsed is an error; individual records that fail are skipped and
// counted. Empty input decodes to an empty collection.
func Decode(data []byte, logger plantly.Logger) (*Result, error) {
	if logger == nil {
		logger = plantly.NewNopLogger()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Result{Version: CurrentVersion}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}

	var (
		version int
		raws    []json.RawMessage
		decode  func(json.RawMessage) (*model.Plant, error)
	)
	switch {
	case env.SchemaVersion != nil:
		version = *env.SchemaVersion
		raws = env.Plants
		decode = decodeRecord
	case env.LegacyState != nil:
		version = 0
		if env.LegacyVersion != nil {
			version = *env.LegacyVersion
		}
		raws = env.LegacyState.Plants
		decode = decodeLegacyRecord
	case env.Plants != nil:
		logger.Warn("snapshot has no schema version, assuming current layout")
		version = CurrentVersion
		raws = env.Plants
		decode = decodeRecord
	default:
		return nil, errors.New("unrecognized snapshot layout")
	}

	switch {
	case version < 0:
		return nil, fmt.Errorf("invalid snapshot schema version: %d", version)
	case version > CurrentVersion:
		logger.Warn("snapshot written by a newer schema, reading known fields only",
			"version", version, "supported", CurrentVersion)
	case version < CurrentVersion:
		logger.Info("migrating snapshot", "from", version, "to", CurrentVersion)
	}

	res := &Result{Version: version, Plants: make([]*model.Plant, 0, len(raws))}
	for i, raw := range raws {
		p, err := decode(raw)
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			logger.Warn("skipping snapshot record", "index", i, "error", err)
			res.Skipped++
			continue
		}
		res.Plants = append(res.Plants, p)
	}
	return res, nil
}

func decodeRecord(raw json.RawMessage) (*model.Plant, error) {
	var r struct {
		ID                    *string `json:"id"`
		Name                  *string `json:"name"`
		WateringFrequencyDays *int    `json:"wateringFrequencyDays"`
		LastWateredAt         *string `json:"lastWateredAt"`
		ImageURI              *string `json:"imageUri"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if r.ID == nil || r.Name == nil || r.WateringFrequencyDays == nil || r.LastWateredAt == nil {
		return nil, errors.New("record is missing a required field")
	}

	wateredAt, err := time.Parse(time.RFC3339Nano, *r.LastWateredAt)
	if err != nil {
		return nil, fmt.Errorf("parsing lastWateredAt: %w", err)
	}

	p := &model.Plant{
		ID:                    *r.ID,
		Name:                  *r.Name,
		WateringFrequencyDays: *r.WateringFrequencyDays,
		LastWateredAt:         wateredAt.UTC(),
	}
	if r.ImageURI != nil {
		p.ImageURI = *r.ImageURI
	}
	return p, nil
}

func decodeLegacyRecord(raw json.RawMessage) (*model.Plant, error) {
	var r struct {
		ID                     json.RawMessage `json:"id"`
		Name                   *string         `json:"name"`
		WateringFrequencyDays  *int            `json:"wateringFrequencyDays"`
		LastWateredAtTimestamp *int64          `json:"lastWateredAtTimestamp"`
		ImageURI               *string         `json:"imageUri"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding legacy record: %w", err)
	}
	if len(r.ID) == 0 || r.Name == nil || r.WateringFrequencyDays == nil || r.LastWateredAtTimestamp == nil {
		return nil, errors.New("legacy record is missing a required field")
	}

	id, err := legacyID(r.ID)
	if err != nil {
		return nil, err
	}

	p := &model.Plant{
		ID:                    id,
		Name:                  *r.Name,
		WateringFrequencyDays: *r.WateringFrequencyDays,
		LastWateredAt:         time.UnixMilli(*r.LastWateredAtTimestamp).UTC(),
	}
	if r.ImageURI != nil {
		p.ImageURI = *r.ImageURI
	}
	return p, nil
}

// legacyID accepts the old store's ids, which were either strings or bare numbers.
func legacyID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return n.String(), nil
		}
	}
	return "", fmt.Errorf("unsupported legacy id: %s", string(raw))
}
