package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotObject is returned when an event payload is valid JSON but not an object.
var ErrNotObject = errors.New("event payload is not a JSON object")

// Field aliases accepted from the backend, in lookup order. The backend mixes
// snake_case and camelCase between endpoints, so every field is resolved here
// once and the rest of the code only sees EventRecord.
var (
	idKeys          = []string{"id", "_id", "event_id", "eventId"}
	titleKeys       = []string{"title", "name"}
	descriptionKeys = []string{"description", "summary"}
	eventTypeKeys   = []string{"event_type", "eventType", "type"}
	startDateKeys   = []string{"start_date", "startDate", "date"}
	endDateKeys     = []string{"end_date", "endDate"}
	startTimeKeys   = []string{"start_time", "startTime", "time"}
	locationKeys    = []string{"location", "venue"}
	hasResultsKeys  = []string{"has_results", "hasResults"}
)

// ParseRawEvent decodes a source-topic message into an EventRecord.
func ParseRawEvent(raw RawEvent) (EventRecord, error) {
	rec, err := DecodeEventRecord(raw.Value)
	if err != nil {
		return EventRecord{}, fmt.Errorf("parse raw event: %w", err)
	}
	if rec.ID == "" && len(raw.Key) > 0 {
		rec.ID = string(raw.Key)
	}
	return rec, nil
}

// DecodeEventRecord normalizes a single backend event object, accepting either
// field casing. Missing or mistyped fields are left empty for the Expander to
// default.
func DecodeEventRecord(data []byte) (EventRecord, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return EventRecord{}, ErrNotObject
		}
		return EventRecord{}, err
	}
	if fields == nil {
		return EventRecord{}, ErrNotObject
	}
	return recordFromFields(fields), nil
}

// DecodeEventRecords normalizes a list payload. The list may be a bare array
// or wrapped in an "events" or "data" member. Items that are not objects are
// dropped and counted in skipped.
func DecodeEventRecords(data []byte) (records []EventRecord, skipped int, err error) {
	items, err := listItems(data)
	if err != nil {
		return nil, 0, err
	}

	records = make([]EventRecord, 0, len(items))
	for _, item := range items {
		rec, err := DecodeEventRecord(item)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func listItems(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode event list: %w", err)
		}
		return items, nil
	}

	var wrapper struct {
		Events []json.RawMessage `json:"events"`
		Data   []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	if wrapper.Events != nil {
		return wrapper.Events, nil
	}
	return wrapper.Data, nil
}

func recordFromFields(fields map[string]any) EventRecord {
	return EventRecord{
		ID:          scalarField(fields, idKeys),
		Title:       stringField(fields, titleKeys),
		Description: stringField(fields, descriptionKeys),
		EventType:   stringField(fields, eventTypeKeys),
		StartDate:   stringField(fields, startDateKeys),
		EndDate:     stringField(fields, endDateKeys),
		StartTime:   stringField(fields, startTimeKeys),
		Location:    stringField(fields, locationKeys),
		HasResults:  boolField(fields, hasResultsKeys),
	}
}

// stringField returns the first string value among keys. Non-string values
// are ignored rather than coerced.
func stringField(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// scalarField is like stringField but also accepts numeric IDs.
func scalarField(fields map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			return strings.TrimSpace(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func boolField(fields map[string]any, keys []string) bool {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case bool:
			return v
		case string:
			b, err := strconv.ParseBool(v)
			return err == nil && b
		}
	}
	return false
}
