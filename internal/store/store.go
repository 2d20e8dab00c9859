package store

import (
	"context"
	"time"
)

// Path is a registered capture endpoint. PathID is the user-facing
// URL-safe slug; ID is the internal primary key. RequestCount is
// derived on read, never stored.
type Path struct {
	ID           string    `json:"id"`
	PathID       string    `json:"path_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RequestCount int64     `json:"request_count"`
}

// Request is one captured HTTP call. PathID references the owning
// Path's primary key. Body is nil when the inbound request carried no
// payload; a non-decodable payload is stored as a textual placeholder.
type Request struct {
	ID          string            `json:"id"`
	PathID      string            `json:"path_id"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Body        *string           `json:"body,omitempty"`
	QueryParams map[string]string `json:"query_params"`
	IPAddress   string            `json:"ip_address"`
	UserAgent   string            `json:"user_agent"`
	Timestamp   time.Time         `json:"timestamp"`
}

// View returns the request shaped for API responses. The body is
// dropped when includeBody is false; dashboard and body-less log
// listings bound their payload size that way.
func (r *Request) View(includeBody bool) *Request {
	if includeBody {
		return r
	}
	v := *r
	v.Body = nil
	return &v
}

// Store is the persistence boundary. Every method is one bounded,
// synchronous unit of work; multi-step mutations run in a single
// transaction inside the implementation.
type Store interface {
	CreatePath(ctx context.Context, desiredSlug string) (*Path, error)
	FindPath(ctx context.Context, pathID string) (*Path, error)
	ListPaths(ctx context.Context) ([]*Path, error)
	CountPaths(ctx context.Context) (int64, error)
	DeletePath(ctx context.Context, pathID string) error

	CreateRequest(ctx context.Context, req *Request) error
	ListRequestsForPath(ctx context.Context, pathID string, limit, offset int, methodFilter string) ([]*Request, error)
	CountRequestsForPath(ctx context.Context, pathID string) (int64, error)
	GetRequest(ctx context.Context, requestID, pathID string) (*Request, error)
	ListRecentRequests(ctx context.Context, limit int) ([]*Request, error)
	DeleteRequestsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	CountRequests(ctx context.Context) (int64, error)
	CountActivePaths(ctx context.Context) (int64, error)
	MethodCounts(ctx context.Context, pathID string) (map[string]int64, error)

	Ping(ctx context.Context) error
	Close() error
}
