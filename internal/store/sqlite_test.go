package store

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func category(err error) goerrors.Category {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category
	}
	return ""
}

func captureFor(t *testing.T, s *SQLiteStore, path *Path, method string) *Request {
	t.Helper()
	req := &Request{
		PathID:      path.ID,
		Method:      method,
		Headers:     map[string]string{"Content-Type": "application/json"},
		QueryParams: map[string]string{},
		IPAddress:   "192.168.1.1",
		UserAgent:   "test-agent",
	}
	if err := s.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func TestCreatePathWithSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePath(ctx, "my-webhook")
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}
	if p.PathID != "my-webhook" {
		t.Fatalf("expected slug %q, got %q", "my-webhook", p.PathID)
	}
	if p.ID == "" {
		t.Fatal("expected generated primary key")
	}
	if p.CreatedAt.After(p.UpdatedAt) {
		t.Fatal("created_at must not be after updated_at")
	}
}

func TestCreatePathSanitizesSlug(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreatePath(context.Background(), "my webhook!")
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}
	if p.PathID != "mywebhook" {
		t.Fatalf("expected sanitized slug %q, got %q", "mywebhook", p.PathID)
	}
}

func TestCreatePathGeneratedSlugsNeverCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreatePath(ctx, "")
	if err != nil {
		t.Fatalf("first CreatePath: %v", err)
	}
	b, err := s.CreatePath(ctx, "")
	if err != nil {
		t.Fatalf("second CreatePath: %v", err)
	}
	if a.PathID == b.PathID {
		t.Fatalf("generated slugs collided: %q", a.PathID)
	}
}

func TestCreatePathDuplicateSlugConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreatePath(ctx, "dup"); err != nil {
		t.Fatalf("first CreatePath: %v", err)
	}
	_, err := s.CreatePath(ctx, "dup")
	if err == nil {
		t.Fatal("expected conflict on duplicate slug")
	}
	if category(err) != goerrors.CategoryConflict {
		t.Fatalf("expected conflict category, got %q (%v)", category(err), err)
	}
}

func TestFindPathNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindPath(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found category, got %q", category(err))
	}
}

func TestListPathsNewestFirstWithCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.CreatePath(ctx, "first")
	time.Sleep(2 * time.Millisecond)
	second, _ := s.CreatePath(ctx, "second")
	captureFor(t, s, first, "POST")

	paths, err := s.ListPaths(ctx)
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0].PathID != second.PathID {
		t.Fatalf("expected newest path first, got %q", paths[0].PathID)
	}
	if paths[1].RequestCount != 1 {
		t.Fatalf("expected request_count 1, got %d", paths[1].RequestCount)
	}

	n, err := s.CountPaths(ctx)
	if err != nil {
		t.Fatalf("CountPaths: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected CountPaths 2, got %d", n)
	}
}

func TestDeletePathCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "doomed")
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, captureFor(t, s, p, "POST").ID)
	}

	if err := s.DeletePath(ctx, "doomed"); err != nil {
		t.Fatalf("DeletePath: %v", err)
	}

	if _, err := s.FindPath(ctx, "doomed"); category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected path gone, got %v", err)
	}
	for _, id := range ids {
		if _, err := s.GetRequest(ctx, id, "doomed"); category(err) != goerrors.CategoryNotFound {
			t.Fatalf("expected request %s gone, got %v", id, err)
		}
	}

	var orphans int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&orphans); err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected no orphaned requests, found %d", orphans)
	}
}

func TestDeletePathNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeletePath(context.Background(), "missing")
	if category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found category, got %v", err)
	}
}

func TestCreateRequestUnknownPath(t *testing.T) {
	s := newTestStore(t)

	req := &Request{PathID: "no-such-pk", Method: "POST"}
	err := s.CreateRequest(context.Background(), req)
	if category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found for dangling path key, got %v", err)
	}
}

func TestListRequestsNewestFirstWithPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "busy")
	var captured []*Request
	for i := 0; i < 5; i++ {
		captured = append(captured, captureFor(t, s, p, "POST"))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := s.ListRequestsForPath(ctx, "busy", 5, 0, "")
	if err != nil {
		t.Fatalf("ListRequestsForPath: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(all))
	}
	if all[0].ID != captured[4].ID {
		t.Fatal("expected newest request first")
	}

	page, err := s.ListRequestsForPath(ctx, "busy", 2, 2, "")
	if err != nil {
		t.Fatalf("paginated list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].ID != captured[2].ID {
		t.Fatalf("expected third-newest request at offset 2, got %s", page[0].ID)
	}
}

func TestListRequestsMethodFilterIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "mixed")
	captureFor(t, s, p, "POST")
	captureFor(t, s, p, "GET")
	captureFor(t, s, p, "POST")

	posts, err := s.ListRequestsForPath(ctx, "mixed", 10, 0, "post")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 POST requests, got %d", len(posts))
	}
	for _, r := range posts {
		if r.Method != "POST" {
			t.Fatalf("filter leaked method %q", r.Method)
		}
	}
}

func TestGetRequestScopedToPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreatePath(ctx, "path-a")
	if _, err := s.CreatePath(ctx, "path-b"); err != nil {
		t.Fatalf("CreatePath: %v", err)
	}
	req := captureFor(t, s, a, "POST")

	got, err := s.GetRequest(ctx, req.ID, "path-a")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.ID != req.ID {
		t.Fatalf("expected request %s, got %s", req.ID, got.ID)
	}

	// A valid request id guessed against the wrong path leaks nothing.
	if _, err := s.GetRequest(ctx, req.ID, "path-b"); category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found across paths, got %v", err)
	}
}

func TestHeaderMappingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "codec")
	body := `{"x":1}`
	req := &Request{
		PathID:      p.ID,
		Method:      "POST",
		Headers:     map[string]string{"A": "1", "B": "2"},
		Body:        &body,
		QueryParams: map[string]string{"q": "v"},
	}
	if err := s.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	got, err := s.GetRequest(ctx, req.ID, "codec")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if len(got.Headers) != 2 || got.Headers["A"] != "1" || got.Headers["B"] != "2" {
		t.Fatalf("headers did not round-trip: %#v", got.Headers)
	}
	if got.QueryParams["q"] != "v" {
		t.Fatalf("query params did not round-trip: %#v", got.QueryParams)
	}
	if got.Body == nil || *got.Body != body {
		t.Fatalf("body did not round-trip: %v", got.Body)
	}
}

func TestAbsentBodyStaysAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "nobody")
	req := captureFor(t, s, p, "GET")

	got, err := s.GetRequest(ctx, req.ID, "nobody")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Body != nil {
		t.Fatalf("expected nil body, got %q", *got.Body)
	}
}

func TestListRecentRequestsAcrossPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreatePath(ctx, "one")
	b, _ := s.CreatePath(ctx, "two")
	captureFor(t, s, a, "GET")
	time.Sleep(2 * time.Millisecond)
	latest := captureFor(t, s, b, "POST")

	recent, err := s.ListRecentRequests(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentRequests: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(recent))
	}
	if recent[0].ID != latest.ID {
		t.Fatal("expected most recent request first")
	}
}

func TestDeleteRequestsOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreatePath(ctx, "aging")
	old := captureFor(t, s, p, "POST")
	fresh := captureFor(t, s, p, "POST")

	// Backdate one record past the cutoff.
	backdated := time.Now().UTC().Add(-48 * time.Hour).UnixNano()
	if _, err := s.db.Exec(`UPDATE requests SET timestamp = ? WHERE id = ?`, backdated, old.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	deleted, err := s.DeleteRequestsOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteRequestsOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if _, err := s.GetRequest(ctx, old.ID, "aging"); category(err) != goerrors.CategoryNotFound {
		t.Fatalf("expected backdated request gone, got %v", err)
	}
	if _, err := s.GetRequest(ctx, fresh.ID, "aging"); err != nil {
		t.Fatalf("fresh request should survive: %v", err)
	}
}

func TestAggregateCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreatePath(ctx, "hot")
	if _, err := s.CreatePath(ctx, "cold"); err != nil {
		t.Fatalf("CreatePath: %v", err)
	}
	captureFor(t, s, a, "POST")
	captureFor(t, s, a, "POST")
	captureFor(t, s, a, "GET")

	total, err := s.CountRequests(ctx)
	if err != nil {
		t.Fatalf("CountRequests: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 requests, got %d", total)
	}

	active, err := s.CountActivePaths(ctx)
	if err != nil {
		t.Fatalf("CountActivePaths: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active path, got %d", active)
	}

	counts, err := s.MethodCounts(ctx, "hot")
	if err != nil {
		t.Fatalf("MethodCounts: %v", err)
	}
	if counts["POST"] != 2 || counts["GET"] != 1 {
		t.Fatalf("unexpected method counts: %#v", counts)
	}
}
