package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	mrand "math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

type httpClient struct {
	client    *http.Client
	cfg       Config
	auth      Auth
	logger    Logger
	redactMap map[string]struct{}
}

func newHTTPClient(cfg Config, auth Auth) *httpClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = defaultRetryInitial
	}
	if cfg.RetryMaxInterval == 0 {
		cfg.RetryMaxInterval = defaultRetryMax
	}
	if cfg.RetryMultiplier == 0 {
		cfg.RetryMultiplier = defaultRetryMultiplier
	}
	if cfg.RequestIDHeader == "" {
		cfg.RequestIDHeader = defaultRequestIDHeader
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdlePerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}

	logger := cfg.Logger
	if cfg.Debug && logger == nil {
		logger = log.New(os.Stdout, "foundry-sdk ", log.LstdFlags)
	}

	redactions := map[string]struct{}{}
	for _, h := range cfg.RedactHeaders {
		redactions[strings.ToLower(h)] = struct{}{}
	}

	return &httpClient{
		cfg:  cfg,
		auth: auth,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		logger:    logger,
		redactMap: redactions,
	}
}

func (c *httpClient) close() {
	if t, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

type pathValue struct {
	name  string
	value string
}

func param(name, value string) pathValue {
	return pathValue{name: name, value: value}
}

// expandPath fills the %s verbs of format with path-escaped parameter values.
func expandPath(format string, values ...pathValue) (string, error) {
	styled := make([]any, len(values))
	for i, v := range values {
		if v.value == "" {
			return "", fmt.Errorf("%s cannot be empty", v.name)
		}
		s, err := runtime.StyleParamWithLocation("simple", false, v.name, runtime.ParamLocationPath, v.value)
		if err != nil {
			return "", fmt.Errorf("format path parameter %s: %w", v.name, err)
		}
		styled[i] = s
	}
	return fmt.Sprintf(format, styled...), nil
}

func (c *httpClient) buildURL(path string, query map[string]string) (string, error) {
	base := strings.TrimSuffix(c.cfg.Endpoint, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(base + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	if c.cfg.APIVersion != "" && q.Get("api-version") == "" {
		q.Set("api-version", c.cfg.APIVersion)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *httpClient) doRequest(ctx context.Context, method, path string, headers http.Header, body io.Reader, query map[string]string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	fullURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	var bodyBytes []byte
	if body != nil {
		if b, ok := body.(*bytes.Buffer); ok {
			bodyBytes = b.Bytes()
		} else {
			bodyBytes, err = io.ReadAll(body)
			if err != nil {
				return nil, fmt.Errorf("read request body: %w", err)
			}
		}
	}

	var lastErr error
	maxAttempts := c.cfg.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, err
		}

		if err := c.applyHeaders(ctx, req, headers); err != nil {
			return nil, err
		}
		c.attachRequestID(req)
		c.runRequestHooks(req)
		c.logRequest(req, attempt)

		start := time.Now()
		resp, err := c.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			if !c.shouldRetry(nil, err, attempt) {
				return nil, err
			}
			lastErr = err
			c.logf("retrying after error (attempt %d/%d): %v", attempt+1, maxAttempts, err)
			if err := c.sleepWithContext(ctx, c.backoffDuration(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}

		c.logResponse(req, resp, respBody, duration)
		c.runResponseHooks(resp, respBody)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		apiErr := apiErrorFromResponse(resp.StatusCode, respBody, resp.Header, c.cfg.RequestIDHeader)
		lastErr = apiErr

		if c.shouldRetry(resp, nil, attempt) {
			c.logf("retrying after status %d (attempt %d/%d)", resp.StatusCode, attempt+1, maxAttempts)
			if err := c.sleepWithContext(ctx, c.retryDelay(resp, attempt)); err != nil {
				return nil, err
			}
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

func (c *httpClient) logf(format string, args ...any) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	c.logger.Printf(format, args...)
}

func (c *httpClient) logRequest(req *http.Request, attempt int) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	c.logger.Printf("[request] %s %s attempt=%d headers=%v", req.Method, req.URL.String(), attempt+1, c.redactedHeaders(req.Header))
}

func (c *httpClient) logResponse(req *http.Request, resp *http.Response, body []byte, duration time.Duration) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	requestID := resp.Header.Get(c.cfg.RequestIDHeader)
	bodyPreview := string(body)
	if len(bodyPreview) > 512 {
		bodyPreview = bodyPreview[:512] + "…"
	}
	c.logger.Printf("[response] %s %s status=%d duration=%s request_id=%s body=%s", req.Method, req.URL.String(), resp.StatusCode, duration, requestID, bodyPreview)
}

func (c *httpClient) redactedHeaders(h http.Header) http.Header {
	if len(c.redactMap) == 0 {
		return h
	}
	cloned := cloneHeaders(h)
	for k := range cloned {
		if _, ok := c.redactMap[strings.ToLower(k)]; ok {
			cloned.Set(k, "[redacted]")
		}
	}
	return cloned
}

func (c *httpClient) applyHeaders(ctx context.Context, req *http.Request, headers http.Header) error {
	authHeaders, err := c.auth.Headers(ctx)
	if err != nil {
		return err
	}
	for k, vals := range authHeaders {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for k, vals := range c.cfg.ExtraHeaders {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return nil
}

func (c *httpClient) attachRequestID(req *http.Request) {
	if c.cfg.RequestIDHeader == "" {
		return
	}
	if req.Header.Get(c.cfg.RequestIDHeader) != "" {
		return
	}
	switch {
	case c.cfg.DefaultRequestID != "":
		req.Header.Set(c.cfg.RequestIDHeader, c.cfg.DefaultRequestID)
	case c.cfg.AutoRequestID:
		req.Header.Set(c.cfg.RequestIDHeader, uuid.NewString())
	}
}

func (c *httpClient) runRequestHooks(req *http.Request) {
	for i, hook := range c.cfg.BeforeRequest {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logf("request hook[%d] panic: %v", i, r)
				}
			}()
			hook(req)
		}()
	}
}

func (c *httpClient) runResponseHooks(resp *http.Response, body []byte) {
	for i, hook := range c.cfg.AfterResponse {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logf("response hook[%d] panic: %v", i, r)
				}
			}()
			hook(resp, body)
		}()
	}
}

func (c *httpClient) shouldRetry(resp *http.Response, err error, attempt int) bool {
	if attempt >= c.cfg.MaxRetries {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}
	if resp == nil {
		return false
	}
	if resp.StatusCode >= 500 {
		return true
	}
	switch resp.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func (c *httpClient) backoffDuration(attempt int) time.Duration {
	factor := math.Pow(c.cfg.RetryMultiplier, float64(attempt))
	delay := time.Duration(float64(c.cfg.RetryInitialInterval) * factor)
	if delay > c.cfg.RetryMaxInterval {
		delay = c.cfg.RetryMaxInterval
	}
	if c.cfg.RetryJitter > 0 {
		jitterFactor := 1 + (mrand.Float64()*2-1)*c.cfg.RetryJitter
		delay = time.Duration(float64(delay) * jitterFactor)
	}
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}

func (c *httpClient) retryDelay(resp *http.Response, attempt int) time.Duration {
	delay := c.backoffDuration(attempt)
	if resp == nil {
		return delay
	}
	retryAfter := parseRetryAfter(resp.Header)
	if retryAfter == nil || *retryAfter <= 0 {
		return delay
	}
	if *retryAfter > delay {
		return *retryAfter
	}
	return delay
}

func (c *httpClient) sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeInto(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *httpClient) getWithContext(ctx context.Context, path string, query map[string]string, out any) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, http.Header{}, nil, query)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *httpClient) deleteWithContext(ctx context.Context, path string, query map[string]string, out any) error {
	data, err := c.doRequest(ctx, http.MethodDelete, path, http.Header{}, nil, query)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *httpClient) sendJSONWithContext(ctx context.Context, method, path string, payload any, query map[string]string, out any) error {
	buf := &bytes.Buffer{}
	if payload != nil {
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	data, err := c.doRequest(ctx, method, path, headers, buf, query)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *httpClient) postJSONWithContext(ctx context.Context, path string, payload any, query map[string]string, out any) error {
	return c.sendJSONWithContext(ctx, http.MethodPost, path, payload, query, out)
}

func (c *httpClient) putJSONWithContext(ctx context.Context, path string, payload any, query map[string]string, out any) error {
	return c.sendJSONWithContext(ctx, http.MethodPut, path, payload, query, out)
}

func (c *httpClient) patchJSONWithContext(ctx context.Context, path string, payload any, query map[string]string, out any) error {
	return c.sendJSONWithContext(ctx, http.MethodPatch, path, payload, query, out)
}

// postMultipartWithContext uploads a single file part alongside plain form fields.
func (c *httpClient) postMultipartWithContext(ctx context.Context, path, fieldName string, file FileUpload, fields map[string]string, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, v := range fields {
		if err := writer.WriteField(key, v); err != nil {
			return err
		}
	}

	fileReader, filename, mimeType, err := c.prepareMultipartFile(file)
	if err != nil {
		writer.Close()
		return err
	}
	defer fileReader.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldName, filename))
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		writer.Close()
		return err
	}
	if _, err := io.Copy(part, fileReader); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Content-Type", writer.FormDataContentType())
	data, err := c.doRequest(ctx, http.MethodPost, path, headers, body, nil)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *httpClient) prepareMultipartFile(file FileUpload) (io.ReadCloser, string, string, error) {
	rc, err := file.open()
	if err != nil {
		return nil, "", "", err
	}

	filename := file.filename()
	mimeType := file.mimeType()

	rcWithMime, detected, err := detectMimeType(rc, mimeType)
	if err != nil {
		return nil, "", "", err
	}
	// Extension-based types are more precise than sniffing for text formats.
	if file.MimeType == "" && mimeType == "application/octet-stream" && detected != "" {
		mimeType = detected
	}

	return rcWithMime, filename, mimeType, nil
}

func detectMimeType(rc io.ReadCloser, fallback string) (io.ReadCloser, string, error) {
	if seeker, ok := rc.(io.ReadSeeker); ok {
		buf := make([]byte, 512)
		n, _ := seeker.Read(buf)
		_, _ = seeker.Seek(0, io.SeekStart)
		if n > 0 {
			return rc, http.DetectContentType(buf[:n]), nil
		}
		return rc, fallback, nil
	}

	buf, err := io.ReadAll(io.LimitReader(rc, 1024))
	if err != nil {
		rc.Close()
		return nil, "", err
	}

	detected := http.DetectContentType(buf)
	combined := struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), rc), rc}
	if detected != "" {
		return combined, detected, nil
	}
	return combined, fallback, nil
}
