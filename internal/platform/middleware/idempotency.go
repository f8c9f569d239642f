package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ehr/claims/internal/platform/fhir"
)

// DefaultIdempotencyTTL is how long a replayable response is kept.
const DefaultIdempotencyTTL = 24 * time.Hour

// Idempotency headers. The X- form is accepted from older clients.
const (
	IdempotencyKeyHeader       = "Idempotency-Key"
	LegacyIdempotencyKeyHeader = "X-Idempotency-Key"
	IdempotencyReplayedHeader  = "X-Idempotency-Replayed"
)

type cachedResponse struct {
	method string
	path   string
	status int
	header http.Header
	body   []byte
}

// IdempotencyCache stores completed POST responses by idempotency key.
type IdempotencyCache struct {
	entries *gocache.Cache
}

func NewIdempotencyCache(ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyCache{entries: gocache.New(ttl, time.Hour)}
}

func (s *IdempotencyCache) get(key string) (*cachedResponse, bool) {
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*cachedResponse), true
}

func (s *IdempotencyCache) put(key string, r *cachedResponse) {
	s.entries.SetDefault(key, r)
}

// Len reports the number of live entries.
func (s *IdempotencyCache) Len() int { return s.entries.ItemCount() }

// Idempotency replays the stored response when a POST repeats an
// Idempotency-Key. Reusing a key for a different path is rejected with 422.
// Only 2xx responses are stored so a failed attempt can be retried.
func Idempotency(store *IdempotencyCache) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost {
				return next(c)
			}
			key := req.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				key = req.Header.Get(LegacyIdempotencyKeyHeader)
			}
			if key == "" {
				return next(c)
			}

			if cached, ok := store.get(key); ok {
				if cached.method != req.Method || cached.path != req.URL.Path {
					return c.JSON(http.StatusUnprocessableEntity, fhir.NewOperationOutcome(
						fhir.IssueSeverityError,
						fhir.IssueTypeDuplicate,
						"Idempotency key was already used for a different operation",
					))
				}
				resp := c.Response()
				for k, vals := range cached.header {
					for _, v := range vals {
						resp.Header().Add(k, v)
					}
				}
				resp.Header().Set(IdempotencyReplayedHeader, "true")
				resp.WriteHeader(cached.status)
				_, err := resp.Write(cached.body)
				return err
			}

			orig := c.Response().Writer
			rec := &responseRecorder{ResponseWriter: orig, header: make(http.Header), status: http.StatusOK}
			c.Response().Writer = rec
			err := next(c)
			c.Response().Writer = orig
			if err != nil {
				return err
			}

			if rec.status >= 200 && rec.status < 300 {
				store.put(key, &cachedResponse{
					method: req.Method,
					path:   req.URL.Path,
					status: rec.status,
					header: rec.header.Clone(),
					body:   append([]byte(nil), rec.body.Bytes()...),
				})
			}

			for k, vals := range rec.header {
				for _, v := range vals {
					orig.Header().Add(k, v)
				}
			}
			orig.WriteHeader(rec.status)
			_, err = orig.Write(rec.body.Bytes())
			return err
		}
	}
}

// responseRecorder buffers a downstream response so it can be cached.
type responseRecorder struct {
	http.ResponseWriter
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(code int) { r.status = code }

func (r *responseRecorder) Write(b []byte) (int, error) { return r.body.Write(b) }
