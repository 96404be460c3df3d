package pushshift

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"psharvest/pkg/errors"
	"psharvest/pkg/logger"
	"psharvest/pkg/ratelimit"
	"psharvest/pkg/records"
)

// Version is reported in the default User-Agent.
var Version = "0.3.0"

// DefaultUserAgent identifies the harvester to the API operators.
func DefaultUserAgent() string {
	return fmt.Sprintf("%s:psharvest:%s", runtime.GOOS, Version)
}

// SearchResponse is the envelope every search endpoint returns.
type SearchResponse struct {
	Data []records.RawRecord `json:"data"`
}

// Client fetches search pages over HTTP.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client with the given per-request timeout.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": DefaultUserAgent(),
			"Accept":     "application/json",
		},
		limiter: ratelimit.Unlimited(),
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetAccessToken authenticates every request with a bearer token.
func (c *Client) SetAccessToken(token string) {
	if token == "" {
		delete(c.headers, "Authorization")
		return
	}
	c.headers["Authorization"] = "Bearer " + token
}

// SetLimiter installs the request budget.
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// SetHTTPClient replaces the underlying transport.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      target,
			"duration": time.Since(start),
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, err, "request failed")
	}

	logger.LogRequest(c.logger, req.Method, target, resp.StatusCode, time.Since(start))
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, target string, v interface{}) error {
	resp, err := c.get(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(target, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, resp.StatusCode, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, v); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          target,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, resp.StatusCode, err, "failed to parse JSON")
	}

	return nil
}

func (c *Client) checkResponseStatus(target string, resp *http.Response) error {
	errType := errors.TypeForStatus(resp.StatusCode)
	if errType == "" {
		return nil
	}

	switch errType {
	case errors.ErrorTypeRateLimit:
		logger.LogRateLimit(c.logger, target, resp.Header.Get("Retry-After"))
		return errors.New(errType, resp.StatusCode, "rate limit exceeded")
	case errors.ErrorTypeAuth:
		return errors.New(errType, resp.StatusCode, "access token missing or rejected")
	case errors.ErrorTypeNotFound:
		return errors.New(errType, resp.StatusCode, "endpoint not found")
	case errors.ErrorTypeServerError:
		return errors.New(errType, resp.StatusCode, "server error")
	default:
		return errors.New(errType, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}

// FetchPage retrieves one page of results. An empty slice means the query is
// exhausted.
func (c *Client) FetchPage(ctx context.Context, u *url.URL) ([]records.RawRecord, error) {
	var page SearchResponse
	if err := c.GetJSON(ctx, u.String(), &page); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("fetched page", map[string]interface{}{
		"subreddit": u.Query().Get(ParamSubreddit),
		"before":    u.Query().Get(ParamBefore),
		"items":     len(page.Data),
	})
	return page.Data, nil
}
