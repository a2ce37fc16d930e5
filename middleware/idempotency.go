package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/utils"
)

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	MaxIdempotencyKeyLength  = 255
)

var (
	uuidKeyPattern   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	opaqueKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,}$`)
)

// IdempotencyLedger stores one record per scoped idempotency key.
type IdempotencyLedger interface {
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Claim(ctx context.Context, key, fingerprint string) (bool, error)
	Complete(ctx context.Context, key, fingerprint string, response *models.IdempotentResponse) error
	Release(ctx context.Context, key string) error
}

// Idempotency makes unsafe requests replayable by key. The first request for a
// key runs the handler; later ones get the stored response, or 409 while the
// first is still running. A key reused for a different method, path or body is
// rejected. Failed attempts free the key for a retry.
type Idempotency struct {
	ledger IdempotencyLedger
	exempt RouteSet
}

func CreateIdempotency(ledger IdempotencyLedger, exempt RouteSet) *Idempotency {
	return &Idempotency{ledger: ledger, exempt: exempt}
}

func ValidIdempotencyKey(token string) bool {
	if len(token) > MaxIdempotencyKeyLength {
		return false
	}
	return uuidKeyPattern.MatchString(token) || opaqueKeyPattern.MatchString(token)
}

func (i *Idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || i.exempt.Matches(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if token == "" {
			utils.WriteError(w, utils.ErrIdempotencyKeyRequired)
			return
		}
		if !ValidIdempotencyKey(token) {
			utils.WriteError(w, utils.ErrInvalidIdempotencyKey)
			return
		}

		fingerprint, err := fingerprintRequest(r)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				utils.WriteError(w, utils.ErrRequestTooLarge)
				return
			}
			utils.WriteError(w, utils.NewValidationError(utils.ReasonInvalidRequest, "Could not read request body"))
			return
		}

		ctx := r.Context()
		key := stores.IdempotencyCacheKey(utils.GetOrganizationID(ctx), token)

		record, err := i.ledger.Get(ctx, key)
		if err != nil {
			i.unavailable(w, r, err, "idempotency lookup failed")
			return
		}
		if record != nil {
			i.answerExisting(w, r, record, fingerprint)
			return
		}

		claimed, err := i.ledger.Claim(ctx, key, fingerprint)
		if err != nil {
			i.unavailable(w, r, err, "idempotency claim failed")
			return
		}
		if !claimed {
			record, err = i.ledger.Get(ctx, key)
			if err != nil {
				i.unavailable(w, r, err, "idempotency lookup failed")
				return
			}
			if record == nil {
				// The other holder released between our claim and read; it is still racing us.
				utils.WriteError(w, utils.ErrIdempotencyKeyInProgress)
				return
			}
			i.answerExisting(w, r, record, fingerprint)
			return
		}

		i.execute(w, r, next, key, fingerprint)
	})
}

func (i *Idempotency) execute(w http.ResponseWriter, r *http.Request, next http.Handler, key, fingerprint string) {
	ctx := r.Context()
	rec := newBufferedResponse()

	defer func() {
		if p := recover(); p != nil {
			i.release(ctx, key)
			panic(p)
		}
	}()

	next.ServeHTTP(rec, r)

	if rec.status >= http.StatusBadRequest {
		i.release(ctx, key)
		rec.flush(w)
		return
	}

	response := &models.IdempotentResponse{
		StatusCode:  rec.status,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
	}
	if err := i.ledger.Complete(context.WithoutCancel(ctx), key, fingerprint, response); err != nil {
		// The processing marker stays until its TTL runs out, so the key cannot run twice.
		utils.LogError(ctx, err, "failed to store idempotent response", map[string]interface{}{"key": key})
	}

	rec.flush(w)
}

func (i *Idempotency) answerExisting(w http.ResponseWriter, r *http.Request, record *models.IdempotencyRecord, fingerprint string) {
	if !record.Matches(fingerprint) {
		utils.WriteError(w, utils.ErrIdempotencyKeyReused)
		return
	}
	if !record.IsCompleted() {
		utils.WriteError(w, utils.ErrIdempotencyKeyInProgress)
		return
	}

	utils.Debug(r.Context(), "replaying idempotent response", map[string]interface{}{
		"status": record.Response.StatusCode,
		"path":   r.URL.Path,
	})

	if record.Response.ContentType != "" {
		w.Header().Set("Content-Type", record.Response.ContentType)
	}
	w.Header().Set(IdempotentReplayedHeader, "true")
	w.WriteHeader(record.Response.StatusCode)
	_, _ = w.Write(record.Response.Body)
}

func (i *Idempotency) release(ctx context.Context, key string) {
	if err := i.ledger.Release(context.WithoutCancel(ctx), key); err != nil {
		utils.LogError(ctx, err, "failed to release idempotency key", map[string]interface{}{"key": key})
	}
}

func (i *Idempotency) unavailable(w http.ResponseWriter, r *http.Request, err error, message string) {
	utils.LogError(r.Context(), err, message, nil)
	utils.WriteError(w, utils.ErrServiceUnavailable)
}

// fingerprintRequest hashes method, path and body, and leaves the body readable for the handler.
func fingerprintRequest(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		r.Body.Close()
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return stores.RequestFingerprint(r.Method, r.URL.Path, body), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// bufferedResponse holds the handler's response until the outcome is recorded.
type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
