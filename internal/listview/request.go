package listview

import (
	"time"

	"github.com/google/uuid"
)

// RequestKind names the remote operations a controller issues.
type RequestKind string

const (
	RequestRefresh    RequestKind = "refresh"
	RequestBulkDelete RequestKind = "bulk_delete"
	RequestSaveView   RequestKind = "save_view"
	RequestDeleteView RequestKind = "delete_view"
)

// RequestStatus is the lifecycle position of a request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestSucceeded RequestStatus = "succeeded"
	RequestFailed    RequestStatus = "failed"
)

// Request records one remote operation: pending, then succeeded (followed by
// a refetch where the operation changed the collection) or failed (a notice
// is raised and the previous view is kept).
type Request struct {
	ID         string        `json:"id"`
	Kind       RequestKind   `json:"kind"`
	Status     RequestStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
}

// Done reports whether the request has settled.
func (r Request) Done() bool {
	return r.Status == RequestSucceeded || r.Status == RequestFailed
}

// Notice is a transient message for the page, similar to a flash message.
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	NoticeError   = "error"
	NoticeSuccess = "success"
)

const maxNotices = 10

func newRequest(kind RequestKind, now time.Time) Request {
	return Request{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    RequestPending,
		StartedAt: now,
	}
}

func (r Request) succeed(now time.Time) Request {
	r.Status = RequestSucceeded
	r.FinishedAt = now
	return r
}

func (r Request) fail(err error, now time.Time) Request {
	r.Status = RequestFailed
	r.FinishedAt = now
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
