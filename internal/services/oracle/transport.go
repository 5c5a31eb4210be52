package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	xhttp "X402/pkg/http"

	"github.com/tidwall/gjson"
)

const maxBackoff = 8 * time.Second

// postWithRetry retries 429 and 5xx replies, honouring Retry-After.
func postWithRetry(ctx context.Context, c *xhttp.Client, opts *xhttp.RequestOptions, retries int) ([]byte, error) {
	if retries < 0 {
		retries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := c.Do(ctx, opts)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 == 2 {
			return resp.Body, nil
		}

		msg := strings.TrimSpace(gjson.GetBytes(resp.Body, "error.message").String())
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryable(resp.StatusCode) || attempt == retries {
			break
		}

		wait := retryAfter(resp.Header.Get("Retry-After"))
		if wait == 0 {
			wait = 800 * time.Millisecond << attempt
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
