package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

// ErrNotFound is returned when no call matches an id or prefix.
var ErrNotFound = errors.New("call not found")

// CallRecord is one dispatched tool call and its outcome.
type CallRecord struct {
	ID         string          `json:"id"`
	Server     string          `json:"server"`
	Tool       string          `json:"tool"`
	Arguments  json.RawMessage `json:"arguments"`
	Result     string          `json:"result"`
	IsError    bool            `json:"is_error"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewCallRecord converts a dispatcher record into a storable one with a
// fresh id.
func NewCallRecord(rec dispatch.Record) *CallRecord {
	args, err := json.Marshal(rec.Call.Args.Map())
	if err != nil {
		args = []byte("{}")
	}
	return &CallRecord{
		ID:         uuid.New().String(),
		Server:     rec.Call.Server,
		Tool:       rec.Call.Tool,
		Arguments:  args,
		Result:     rec.Result,
		IsError:    rec.IsError(),
		ErrorKind:  string(rec.Kind),
		DurationMS: rec.Duration.Milliseconds(),
		CreatedAt:  rec.Started.UTC(),
	}
}

// CallListOptions controls filtering and pagination for ListCalls.
type CallListOptions struct {
	Server     string
	Tool       string
	ErrorsOnly bool
	Limit      int
	Offset     int
}

// Store is the persistence interface for call history.
type Store interface {
	// RecordCall inserts a call. The ID field must be set by the caller;
	// a zero CreatedAt is set to now.
	RecordCall(ctx context.Context, c *CallRecord) error

	// GetCall returns a call by ID or unique ID prefix.
	GetCall(ctx context.Context, id string) (*CallRecord, error)

	// ListCalls returns calls ordered by created_at descending.
	ListCalls(ctx context.Context, opts CallListOptions) ([]CallRecord, error)

	// DeleteCall removes a call by ID or unique ID prefix.
	DeleteCall(ctx context.Context, id string) error

	// PruneCalls removes calls created before the given time and reports
	// how many were removed.
	PruneCalls(ctx context.Context, before time.Time) (int64, error)

	// Close releases resources.
	Close() error
}

type callIDKey struct{}

// WithCallID attaches the id under which the next recorded call is stored.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallID returns the id attached by WithCallID.
func CallID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callIDKey{}).(string)
	return id, ok && id != ""
}

// Hook returns a dispatch hook that records every call in s, using the
// context's call id when one is attached. Failures to record are passed to
// onErr when it is non-nil.
func Hook(s Store, onErr func(error)) dispatch.Hook {
	return func(ctx context.Context, rec dispatch.Record) {
		c := NewCallRecord(rec)
		if id, ok := CallID(ctx); ok {
			c.ID = id
		}
		if err := s.RecordCall(context.WithoutCancel(ctx), c); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
