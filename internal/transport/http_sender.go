package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxResponseSize = 64 * 1024
	userAgent              = "notify-dispatcher/1.0"
)

// HTTPSender delivers notification jobs over HTTP(S).
// Any completed exchange is a success whatever its status code;
// only requests that get no response are failures.
type HTTPSender struct {
	client          *http.Client
	maxResponseSize int64
}

// NewHTTPSender creates a sender with the given timeout and response size cap
func NewHTTPSender(timeout time.Duration, maxResponseSize int64) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxResponseSize <= 0 {
		maxResponseSize = DefaultMaxResponseSize
	}

	return &HTTPSender{
		client:          &http.Client{Timeout: timeout},
		maxResponseSize: maxResponseSize,
	}
}

// Send implements interfaces.Sender
func (s *HTTPSender) Send(ctx context.Context, job *interfaces.NotificationJob) (*interfaces.SendResult, error) {
	req, err := newRequest(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxResponseSize))
	if err != nil {
		logger.FromContext(ctx).Debug().Err(err).Msg("Failed to read notification response body")
	}

	return &interfaces.SendResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

func newRequest(ctx context.Context, job *interfaces.NotificationJob) (*http.Request, error) {
	method := strings.ToUpper(job.Verb)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if job.Content != "" {
		body = strings.NewReader(job.Content)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL(job), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	if job.ContentType != "" && job.Content != "" {
		req.Header.Set("Content-Type", job.ContentType)
	}
	if job.Tenant != "" {
		req.Header.Set("Fiware-Service", job.Tenant)
	}
	if job.ServicePath != "" {
		req.Header.Set("Fiware-ServicePath", job.ServicePath)
	}
	if job.AuthToken != "" {
		req.Header.Set("X-Auth-Token", job.AuthToken)
	}
	if job.Correlator != "" {
		req.Header.Set("Fiware-Correlator", job.Correlator)
	}
	if job.RenderFormat != "" {
		req.Header.Set("Ngsiv2-AttrsFormat", job.RenderFormat)
	}
	if job.From != "" {
		req.Header.Set("X-Forwarded-For", job.From)
	}
	for name, value := range job.ExtraHeaders {
		req.Header.Set(name, value)
	}

	return req, nil
}

func requestURL(job *interfaces.NotificationJob) string {
	protocol := job.Protocol
	if protocol == "" {
		protocol = "http:"
	}
	if !strings.HasSuffix(protocol, ":") {
		protocol += ":"
	}

	resource := job.Resource
	if resource != "" && !strings.HasPrefix(resource, "/") {
		resource = "/" + resource
	}

	return protocol + "//" + job.Host + ":" + strconv.Itoa(job.Port) + resource
}
