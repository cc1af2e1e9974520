package voltalis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r *response) isJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json"
}

// decode unmarshals a JSON response into v.
func (r *response) decode(v any) error {
	if !r.isJSON() {
		return fmt.Errorf("voltalis: expected JSON response, got %q", r.contentType)
	}

	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("voltalis: decoding response: %w", err)
	}

	return nil
}

// send issues a request, logging in first when no token is cached. A transport failure
// is retried once after a fresh login when retry is set. Authentication errors are
// never retried. A 404 yields a nil response.
func (c *Client) send(ctx context.Context, method string, path string, body any, retry bool) (*response, error) {
	if c.cache.Get(AuthToken) == "" && path != loginPath {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, method, path, body)
	if err == nil {
		return resp, nil
	}

	if !retry || path == loginPath || ctx.Err() != nil {
		return nil, err
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return nil, err
	}

	c.logger.WithError(err).Warnf("%v %v failed, logging in again and retrying", method, path)

	if err := c.Login(ctx); err != nil {
		return nil, err
	}

	return c.send(ctx, method, path, body, false)
}

func (c *Client) do(ctx context.Context, method string, path string, body any) (*response, error) {
	path = c.expandPath(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("voltalis: encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("voltalis: waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("voltalis: building request: %w", err)
	}

	if token := c.cache.Get(AuthToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "*/*")

	c.logger.Debugf("Calling Voltalis API: %v %v", method, path)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ObserveRequest(method, 0, time.Since(start))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	c.observer.ObserveRequest(method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, StatusCode: httpResp.StatusCode, Err: err}
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, strings.TrimSpace(string(data)))
	case httpResp.StatusCode == http.StatusNotFound:
		c.logger.Warnf("%v %v not found: %s", method, path, strings.TrimSpace(string(data)))
		return nil, nil
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return nil, &TransportError{Method: method, Path: path, StatusCode: httpResp.StatusCode}
	}

	return &response{
		status:      httpResp.StatusCode,
		contentType: httpResp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func (c *Client) expandPath(path string) string {
	if strings.Contains(path, sitePlaceholder) {
		path = strings.ReplaceAll(path, sitePlaceholder, c.cache.Get(DefaultSiteID))
	}

	return path
}

func programPath(template string, id int) string {
	return strings.ReplaceAll(template, programPlaceholder, strconv.Itoa(id))
}

func idPath(base string, id int) string {
	return base + "/" + strconv.Itoa(id)
}
