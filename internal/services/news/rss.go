package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dservice "X402/internal/domain/service"
	"X402/pkg/cache"
	xhttp "X402/pkg/http"
	applogger "X402/pkg/logger"

	"github.com/mmcdole/gofeed"
)

const digestSeparator = " | "

// RSSDigest summarises the newest headlines of one RSS/Atom feed. Digests are
// cached for ttl so a burst of paid requests does not hammer the feed.
type RSSDigest struct {
	feedURL   string
	headlines int
	ttl       time.Duration
	client    *xhttp.Client
	cache     cache.Service
	log       *applogger.Logger
}

var _ dservice.NewsSource = (*RSSDigest)(nil)

func NewRSSDigest(feedURL string, headlines int, timeout, ttl time.Duration, c cache.Service, l *applogger.Logger) *RSSDigest {
	if headlines <= 0 {
		headlines = 2
	}
	return &RSSDigest{
		feedURL:   feedURL,
		headlines: headlines,
		ttl:       ttl,
		client:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("Mozilla/5.0")),
		cache:     c,
		log:       l.With("news"),
	}
}

// Digest returns the first headlines joined by " | ". An empty feed yields
// the empty string; fetch or parse failures are returned as errors.
func (r *RSSDigest) Digest(ctx context.Context) (string, error) {
	key := "news:" + r.feedURL
	if r.cache != nil {
		cached, err := cache.GetTyped[string](ctx, r.cache, key)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			r.log.Warn("news cache read failed", applogger.Error(err))
		}
	}

	digest, err := r.fetch(ctx)
	if err != nil {
		return "", err
	}

	if r.cache != nil && r.ttl > 0 {
		if err := r.cache.Set(ctx, key, digest, r.ttl); err != nil {
			r.log.Warn("news cache write failed", applogger.Error(err))
		}
	}
	return digest, nil
}

func (r *RSSDigest) fetch(ctx context.Context) (string, error) {
	resp, err := r.client.Do(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: r.feedURL})
	if err != nil {
		return "", fmt.Errorf("fetch feed: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}
	return Headlines(feed, r.headlines), nil
}

// Headlines joins the first n non-blank item titles.
func Headlines(feed *gofeed.Feed, n int) string {
	if feed == nil {
		return ""
	}
	titles := make([]string, 0, n)
	for _, item := range feed.Items {
		if len(titles) == n {
			break
		}
		if item == nil {
			continue
		}
		if t := strings.TrimSpace(item.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return strings.Join(titles, digestSeparator)
}
