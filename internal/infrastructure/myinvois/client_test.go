package myinvois_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

// fastThrottle keeps the budget logic in the loop while making the spacing
// negligible for tests.
func fastThrottle() *myinvois.Throttle {
	return myinvois.NewThrottleWithBudgets(map[myinvois.EndpointKey]int{
		myinvois.EndpointLogin:       600000,
		myinvois.EndpointSubmit:      600000,
		myinvois.EndpointStatus:      600000,
		myinvois.EndpointCancel:      600000,
		myinvois.EndpointValidateTIN: 600000,
	})
}

type authorityStub struct {
	t          *testing.T
	tokenCalls int
	submit     http.HandlerFunc
	status     http.HandlerFunc
	cancel     http.HandlerFunc
}

func (s *authorityStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls++
		assert.Equal(s.t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(myinvois.TokenResponse{AccessToken: "tok-123", ExpiresIn: 3600})
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(s.t, "Bearer tok-123", r.Header.Get("Authorization"))
			next(w, r)
		}
	}
	if s.submit != nil {
		mux.HandleFunc("/api/v1.0/documentsubmissions", authed(s.submit))
	}
	if s.status != nil {
		mux.HandleFunc("/api/v1.0/documentsubmissions/", authed(s.status))
	}
	if s.cancel != nil {
		mux.HandleFunc("/api/v1.0/documents/state/", authed(s.cancel))
	}
	return mux
}

func newTestClient(t *testing.T, stub *authorityStub) *myinvois.Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return myinvois.NewClient(myinvois.ClientConfig{
		BaseURL:      srv.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
	}, fastThrottle(), logger.New(logger.Config{Env: "production", Level: "error"}))
}

// ──────────────────────────────────────────────────────────────────────────────
// TestClient_SubmitAndTokenCache: the bearer token is fetched once and reused
// across calls until it nears expiry.
// ──────────────────────────────────────────────────────────────────────────────

func TestClient_SubmitAndTokenCache(t *testing.T) {
	stub := &authorityStub{t: t}
	stub.submit = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req myinvois.SubmissionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Documents, 1)
		assert.Equal(t, "INV001", req.Documents[0].CodeNumber)

		_ = json.NewEncoder(w).Encode(myinvois.SubmissionResponse{
			SubmissionUID:     "SUB-001",
			AcceptedDocuments: []myinvois.AcceptedDocument{{UUID: "DOC-AAA"}},
		})
	}
	c := newTestClient(t, stub)

	envelopes := []myinvois.DocumentEnvelope{{Format: "JSON", CodeNumber: "INV001", Document: "e30="}}
	resp, err := c.SubmitDocuments(context.Background(), envelopes)
	require.NoError(t, err)
	assert.Equal(t, "SUB-001", resp.SubmissionUID)

	_, err = c.SubmitDocuments(context.Background(), envelopes)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.tokenCalls, "the second call must reuse the cached token")
}

// TestClient_ThrottledSubmitRetries: a 429 is absorbed inside the client and
// the call succeeds on the retry, invisibly to the caller.
func TestClient_ThrottledSubmitRetries(t *testing.T) {
	attempts := 0
	stub := &authorityStub{t: t}
	stub.submit = func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(myinvois.SubmissionResponse{
			AcceptedDocuments: []myinvois.AcceptedDocument{{UUID: "DOC-AAA"}},
		})
	}
	c := newTestClient(t, stub)

	resp, err := c.SubmitDocuments(context.Background(), []myinvois.DocumentEnvelope{{CodeNumber: "INV001"}})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, resp.AcceptedDocuments, 1)
}

// TestClient_NonSuccessIsAPIError: non-2xx responses surface as APIError
// carrying the status and raw body.
func TestClient_NonSuccessIsAPIError(t *testing.T) {
	stub := &authorityStub{t: t}
	stub.submit = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad document"}`))
	}
	c := newTestClient(t, stub)

	_, err := c.SubmitDocuments(context.Background(), []myinvois.DocumentEnvelope{{CodeNumber: "INV001"}})
	var apiErr *myinvois.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad document")
}

// TestClient_EmptyStatusBody: an undecodable 200 from the status endpoint
// yields an empty response rather than an error; interpreting it is the
// poller's call.
func TestClient_EmptyStatusBody(t *testing.T) {
	stub := &authorityStub{t: t}
	stub.status = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, stub)

	resp, err := c.GetSubmission(context.Background(), "SUB-001", 1, 100)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, resp.OverallStatus)
	assert.Empty(t, resp.DocumentSummary)
}

func TestClient_CancelDocument(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody myinvois.CancelRequest
	stub := &authorityStub{t: t}
	stub.cancel = func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, stub)

	require.NoError(t, c.CancelDocument(context.Background(), "DOC-AAA", "wrong buyer"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/v1.0/documents/state/DOC-AAA/state", gotPath)
	assert.Equal(t, "cancelled", gotBody.Status)
	assert.Equal(t, "wrong buyer", gotBody.Reason)
}
