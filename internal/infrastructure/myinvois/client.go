package myinvois

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

const apiPrefix = "/api/v1.0"

// tokenExpiryMargin is shaved off the token lifetime so a request never
// departs with a token about to lapse mid-flight.
const tokenExpiryMargin = 60 * time.Second

// ClientConfig carries the client's connection settings.
type ClientConfig struct {
	BaseURL      string
	IdentityURL  string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client is the rate-limited MyInvois REST client. All calls go through the
// shared Throttle; the bearer token is fetched lazily and cached until close
// to expiry.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	throttle   *Throttle
	log        *logger.Logger

	tokenMu  sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient builds the client. throttle is the process-wide instance; the
// HTTP timeout comes from configuration (tens of seconds, the validation
// pipeline can be slow).
func NewClient(cfg ClientConfig, throttle *Throttle, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = cfg.BaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		throttle:   throttle,
		log:        log.Component("myinvois-client"),
	}
}

// SubmitDocuments posts the envelope batch to the submission endpoint.
func (c *Client) SubmitDocuments(ctx context.Context, envelopes []DocumentEnvelope) (*SubmissionResponse, error) {
	body, err := json.Marshal(SubmissionRequest{Documents: envelopes})
	if err != nil {
		return nil, fmt.Errorf("marshal submission request: %w", err)
	}
	resp, err := c.do(ctx, EndpointSubmit, http.MethodPost, apiPrefix+"/documentsubmissions", body)
	if err != nil {
		return nil, err
	}
	var out SubmissionResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, &InvalidResponseShapeError{Endpoint: string(EndpointSubmit), Reason: err.Error()}
	}
	return &out, nil
}

// GetSubmission queries the asynchronous validation status of a submission.
// A 200 whose body cannot be decoded yields an empty (non-nil) response; the
// poller decides what that means.
func (c *Client) GetSubmission(ctx context.Context, submissionUID string, pageNo, pageSize int) (*SubmissionStatusResponse, error) {
	path := apiPrefix + "/documentsubmissions/" + url.PathEscape(submissionUID) +
		"?pageNo=" + strconv.Itoa(pageNo) + "&pageSize=" + strconv.Itoa(pageSize)
	resp, err := c.do(ctx, EndpointStatus, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out SubmissionStatusResponse
	if err := decodeJSON(resp, &out); err != nil {
		c.log.Warn().Str("submission_uid", submissionUID).Err(err).
			Msg("status response body did not match the expected shape")
		return &SubmissionStatusResponse{}, nil
	}
	return &out, nil
}

// GetDocumentDetails fetches one document's full validation detail.
func (c *Client) GetDocumentDetails(ctx context.Context, documentUUID string) (*DocumentDetails, error) {
	path := apiPrefix + "/documents/" + url.PathEscape(documentUUID) + "/details"
	resp, err := c.do(ctx, EndpointDetails, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out DocumentDetails
	if err := decodeJSON(resp, &out); err != nil {
		return nil, &InvalidResponseShapeError{Endpoint: string(EndpointDetails), Reason: err.Error()}
	}
	return &out, nil
}

// CancelDocument asks the authority to cancel a validated document.
func (c *Client) CancelDocument(ctx context.Context, documentUUID, reason string) error {
	body, err := json.Marshal(CancelRequest{Status: "cancelled", Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}
	path := apiPrefix + "/documents/state/" + url.PathEscape(documentUUID) + "/state"
	resp, err := c.do(ctx, EndpointCancel, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// ValidateTaxpayerTIN checks a TIN against the identity-validation endpoint;
// a 200 means the TIN matches the id type/value pair.
func (c *Client) ValidateTaxpayerTIN(ctx context.Context, tin, idType, idValue string) error {
	path := apiPrefix + "/taxpayer/validate/" + url.PathEscape(tin) +
		"?idType=" + url.QueryEscape(idType) + "&idValue=" + url.QueryEscape(idValue)
	resp, err := c.do(ctx, EndpointValidateTIN, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// ── Internals ─────────────────────────────────────────────────────────────────

// do executes one authenticated call through the throttle and turns non-2xx
// responses into APIError. The caller owns the response body on success.
func (c *Client) do(ctx context.Context, key EndpointKey, method, path string, body []byte) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.throttle.Do(ctx, key, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		return nil, &APIError{Endpoint: string(key), StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// accessToken returns the cached bearer token, refreshing it through the
// login budget when absent or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {"InvoicingAPI"},
	}
	resp, err := c.throttle.Do(ctx, EndpointLogin, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.IdentityURL+"/connect/token", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		return "", &APIError{Endpoint: string(EndpointLogin), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok); err != nil {
		return "", &InvalidResponseShapeError{Endpoint: string(EndpointLogin), Reason: err.Error()}
	}
	if tok.AccessToken == "" {
		return "", &InvalidResponseShapeError{Endpoint: string(EndpointLogin), Reason: "token response has no access_token"}
	}

	c.token = tok.AccessToken
	c.tokenExp = tokenExpiry(tok)
	c.log.Debug().Time("expires", c.tokenExp).Msg("refreshed access token")
	return c.token, nil
}

// tokenExpiry prefers the JWT exp claim over expires_in: the identity
// service occasionally reports a longer expires_in than the token it minted.
func tokenExpiry(tok TokenResponse) time.Time {
	fallback := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.Add(-tokenExpiryMargin)
		}
	}
	if tok.ExpiresIn <= 0 {
		return time.Now().Add(5 * time.Minute)
	}
	return fallback.Add(-tokenExpiryMargin)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
