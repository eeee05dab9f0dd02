package domain

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned by an EventSource when no event has the ID.
var ErrEventNotFound = errors.New("event not found")

// EventRecord is the canonical form of a club event as published by the
// backend. Date and time fields keep the raw strings the backend sent;
// the Expander owns parsing them and falling back when they are malformed.
type EventRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"eventType"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	Location    string `json:"location"`
	HasResults  bool   `json:"hasResults,omitempty"`
}

// Occurrence is one dated instance of an EventRecord. Occurrences are derived
// on every fetch and never updated in place.
type Occurrence struct {
	ID          string    `json:"id"` // "<eventId>-<yyyy-mm-dd>"
	EventID     string    `json:"eventId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"eventType"`
	Date        string    `json:"date"` // "April 3, 2024"
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Time        string    `json:"time"` // "6:30 PM" or "Time TBD"
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	HasResults  bool      `json:"hasResults"`
}

// EventFilter narrows a backend event listing.
type EventFilter struct {
	StartDate time.Time
	EndDate   time.Time
	EventType string
	Limit     int
}

// EventSource lists and loads EventRecords, typically from the club backend.
type EventSource interface {
	ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error)
	GetEvent(ctx context.Context, id string) (EventRecord, error)
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
