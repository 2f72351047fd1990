package notifier

import (
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Poster delivers one serialized payload to one webhook URL.
type Poster interface {
	Post(url string, payload []byte) error
}

// WebhookPoster posts JSON payloads to Discord-compatible webhook endpoints
// with a bounded per-request timeout.
type WebhookPoster struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewWebhookPoster(timeout time.Duration) *WebhookPoster {
	return &WebhookPoster{
		timeout: timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     8,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}
}

func (p *WebhookPoster) Post(url string, payload []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("webhook post: status %d", statusCode)
	}

	return nil
}
