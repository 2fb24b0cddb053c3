package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/go-chi/chi/v5"
)

// snapshotLimit caps how much of a body the audit trail captures.
const snapshotLimit = 64 << 10

type contextKey int

const routeTagKey contextKey = 0

// routeTag is planted in the request context by the audit middleware and
// filled in by route-group middleware once chi has matched the route.
// The audit step reads it after the handler returns, so slug correlation
// comes from the route declaration itself rather than from re-parsing
// the path.
type routeTag struct {
	slug string
	skip bool
}

func tagFromContext(ctx context.Context) *routeTag {
	tag, _ := ctx.Value(routeTagKey).(*routeTag)
	return tag
}

// TagSlug records the matched slug URL parameter for audit correlation.
// Routes that carry a {slug} parameter install it inside their group.
func TagSlug(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tag := tagFromContext(r.Context()); tag != nil {
			tag.slug = chi.URLParam(r, "slug")
		}
		next.ServeHTTP(w, r)
	})
}

// SkipAudit exempts a route group from the audit trail. The log
// management routes use it so that reading the trail does not grow it.
func SkipAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tag := tagFromContext(r.Context()); tag != nil {
			tag.skip = true
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status code and a bounded copy of the
// body while still streaming everything to the client.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped writer so streaming handlers (the SSE
// event stream) keep working behind the middleware.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer for
// deadline control.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.body.Len() < snapshotLimit {
		remain := snapshotLimit - r.body.Len()
		if len(p) <= remain {
			r.body.Write(p)
		} else {
			r.body.Write(p[:remain])
		}
	}
	return r.ResponseWriter.Write(p)
}

// Audit wraps the API with the request/response audit trail. The entry
// is persisted synchronously after the response has been written, inside
// the request lifecycle, and persistence failure never changes what the
// caller already received.
func Audit(logs *app.AgentLogService, schemas ports.SchemaStore, clock ports.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := &routeTag{}
			r = r.WithContext(context.WithValue(r.Context(), routeTagKey, tag))

			start := clock.Now()
			var reqBody []byte
			if r.Body != nil && mutating(r.Method) {
				reqBody, _ = io.ReadAll(io.LimitReader(r.Body, snapshotLimit))
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
			}

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			if tag.skip {
				return
			}

			entry := agentlog.Entry{
				Method:      r.Method,
				Path:        normalizedPath(r),
				StatusCode:  rec.status,
				DurationMS:  int(clock.Now().Sub(start).Milliseconds()),
				RequestBody: agentlog.SnapshotJSON(reqBody),
				ClientIP:    agentlog.ClientIP(r.Header),
				UserAgent:   r.UserAgent(),
				SchemaSlug:  tag.slug,
			}
			if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
				entry.ResponseBody = agentlog.SnapshotJSON(rec.body.Bytes())
			}
			entry.Error = agentlog.ExtractError(entry.StatusCode, entry.ResponseBody)

			// Best-effort correlation; a claim on an unknown slug still
			// gets audited, just without a schema ID.
			if tag.slug != "" {
				if sc, err := schemas.GetBySlug(r.Context(), tag.slug); err == nil {
					entry.SchemaID = sc.ID
				}
			}

			logs.Record(r.Context(), entry)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func normalizedPath(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// Metrics observes request counts and latencies labelled by the chi
// route pattern, so per-slug paths do not explode the label space.
func Metrics(m *metrics.Collector, clock ports.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := clock.Now()
			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			elapsed := clock.Now().Sub(start).Seconds()
			m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed)
		})
	}
}
