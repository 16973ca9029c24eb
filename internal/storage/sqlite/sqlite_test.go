package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/storage"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, server, tool string, isErr bool, at time.Time) *storage.CallRecord {
	c := &storage.CallRecord{
		ID:         id,
		Server:     server,
		Tool:       tool,
		Arguments:  []byte(`{"path":"/tmp"}`),
		Result:     "ok",
		IsError:    isErr,
		DurationMS: 12,
		CreatedAt:  at,
	}
	if isErr {
		c.Result = "Error: boom"
		c.ErrorKind = string(dispatch.KindToolInvocation)
	}
	return c
}

func TestRecordAndGetCall(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := record("abc12345-0000-0000-0000-000000000000", "filesystem", "read_file", false, time.Time{})
	if err := s.RecordCall(ctx, c); err != nil {
		t.Fatalf("RecordCall: %v", err)
	}
	if c.CreatedAt.IsZero() {
		t.Fatal("RecordCall should set created_at")
	}

	got, err := s.GetCall(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Server != "filesystem" || got.Tool != "read_file" {
		t.Errorf("server/tool = %q/%q", got.Server, got.Tool)
	}
	if string(got.Arguments) != `{"path":"/tmp"}` {
		t.Errorf("arguments = %s", got.Arguments)
	}
	if got.IsError {
		t.Error("is_error = true, want false")
	}
	if got.DurationMS != 12 {
		t.Errorf("duration_ms = %d, want 12", got.DurationMS)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, c.CreatedAt)
	}
}

func TestRecordCallRequiresID(t *testing.T) {
	s := testStore(t)
	if err := s.RecordCall(context.Background(), &storage.CallRecord{Tool: "x"}); err == nil {
		t.Fatal("RecordCall without id should fail")
	}
}

func TestGetCallByPrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.RecordCall(ctx, record("abc11111-0000", "a", "t", false, now))
	s.RecordCall(ctx, record("abc22222-0000", "a", "t", false, now))

	got, err := s.GetCall(ctx, "abc1")
	if err != nil {
		t.Fatalf("GetCall prefix: %v", err)
	}
	if got.ID != "abc11111-0000" {
		t.Errorf("id = %q", got.ID)
	}

	if _, err := s.GetCall(ctx, "abc"); err == nil {
		t.Error("ambiguous prefix should fail")
	}

	_, err = s.GetCall(ctx, "zzz")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCall(zzz) error = %v, want ErrNotFound", err)
	}
}

func TestGetCallPrefixIsLiteral(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordCall(ctx, record("abc11111-0000", "a", "t", false, time.Now().UTC()))

	for _, prefix := range []string{"%", "_bc1", "a%", ""} {
		if _, err := s.GetCall(ctx, prefix); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetCall(%q) error = %v, want ErrNotFound", prefix, err)
		}
	}
}

func TestListCalls(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	s.RecordCall(ctx, record("c1", "fs", "read_file", false, base))
	s.RecordCall(ctx, record("c2", "fs", "write_file", true, base.Add(time.Minute)))
	s.RecordCall(ctx, record("c3", "web", "web_search", false, base.Add(2*time.Minute)))

	all, err := s.ListCalls(ctx, storage.CallListOptions{})
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c3" || all[2].ID != "c1" {
		t.Fatalf("ListCalls order = %v", ids(all))
	}

	fs, _ := s.ListCalls(ctx, storage.CallListOptions{Server: "fs"})
	if len(fs) != 2 {
		t.Errorf("server filter = %v", ids(fs))
	}

	tool, _ := s.ListCalls(ctx, storage.CallListOptions{Tool: "web_search"})
	if len(tool) != 1 || tool[0].ID != "c3" {
		t.Errorf("tool filter = %v", ids(tool))
	}

	errs, _ := s.ListCalls(ctx, storage.CallListOptions{ErrorsOnly: true})
	if len(errs) != 1 || errs[0].ID != "c2" || errs[0].ErrorKind != string(dispatch.KindToolInvocation) {
		t.Errorf("errors filter = %v", ids(errs))
	}

	page, _ := s.ListCalls(ctx, storage.CallListOptions{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "c2" {
		t.Errorf("pagination = %v", ids(page))
	}
}

func TestDeleteCall(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordCall(ctx, record("del-0001", "fs", "read_file", false, time.Now()))

	if err := s.DeleteCall(ctx, "del"); err != nil {
		t.Fatalf("DeleteCall: %v", err)
	}
	if _, err := s.GetCall(ctx, "del-0001"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCall after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCall(ctx, "del"); err == nil {
		t.Error("deleting a missing call should fail")
	}
}

func TestPruneCalls(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.RecordCall(ctx, record("old1", "fs", "t", false, now.Add(-48*time.Hour)))
	s.RecordCall(ctx, record("old2", "fs", "t", false, now.Add(-25*time.Hour)))
	s.RecordCall(ctx, record("new1", "fs", "t", false, now))

	n, err := s.PruneCalls(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneCalls: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	left, _ := s.ListCalls(ctx, storage.CallListOptions{})
	if len(left) != 1 || left[0].ID != "new1" {
		t.Errorf("remaining = %v", ids(left))
	}
}

func TestHookRecordsDispatch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	hook := storage.Hook(s, func(err error) { t.Errorf("hook error: %v", err) })
	hook(ctx, dispatch.Record{
		Call: dispatch.Call{
			Server: "fs",
			Tool:   "read_file",
			Args:   dispatch.Args{Path: dispatch.Some("/tmp/x")},
		},
		Result:   "Error: Server fs not found",
		Kind:     dispatch.KindServerNotFound,
		Started:  time.Now(),
		Duration: 3 * time.Millisecond,
	})

	calls, err := s.ListCalls(ctx, storage.CallListOptions{})
	if err != nil || len(calls) != 1 {
		t.Fatalf("ListCalls = %v, %v", ids(calls), err)
	}
	c := calls[0]
	if !c.IsError || c.ErrorKind != string(dispatch.KindServerNotFound) {
		t.Errorf("is_error/kind = %v/%q", c.IsError, c.ErrorKind)
	}
	if string(c.Arguments) != `{"path":"/tmp/x"}` {
		t.Errorf("arguments = %s", c.Arguments)
	}
	if c.DurationMS != 3 {
		t.Errorf("duration_ms = %d", c.DurationMS)
	}
}

func ids(calls []storage.CallRecord) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.ID
	}
	return out
}

func TestHookUsesContextCallID(t *testing.T) {
	s := testStore(t)
	ctx := storage.WithCallID(context.Background(), "fixed-id")

	storage.Hook(s, nil)(ctx, dispatch.Record{
		Call:    dispatch.Call{Tool: dispatch.ToolListServers},
		Result:  "[]",
		Started: time.Now(),
	})

	got, err := s.GetCall(context.Background(), "fixed-id")
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Tool != dispatch.ToolListServers || got.IsError {
		t.Errorf("call = %+v", got)
	}
}
