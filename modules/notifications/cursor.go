package notifications

import (
	"errors"
	"net/http"
	"strconv"
)

// ResumeHeader carries the client's cursor on stream connect. The query
// parameter is the fallback for transports that cannot set custom headers
// (the browser EventSource constructor, most notably).
const (
	ResumeHeader     = "Last-Event-ID"
	resumeQueryParam = "after_id"
)

// errInvalidCursor rejects the connection attempt outright. Defaulting a
// malformed cursor to 0 would make the client believe it has seen events
// it has not.
var errInvalidCursor = errors.New("invalid resume cursor")

// parseCursor reads the resume cursor from the header or the query
// fallback. Absent means from the beginning.
func parseCursor(r *http.Request) (int64, error) {
	raw := r.Header.Get(ResumeHeader)
	if raw == "" {
		raw = r.URL.Query().Get(resumeQueryParam)
	}
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errInvalidCursor
	}
	return id, nil
}
