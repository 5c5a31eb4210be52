package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	dservice "X402/internal/domain/service"
)

const predictAttempts = 2

// HTTPClassifier asks a model server for the [p_down, p_up] of one asset.
type HTTPClassifier struct {
	asset string
	base  *HTTPServiceBase
}

var _ dservice.Classifier = (*HTTPClassifier)(nil)

type predictRequest struct {
	Asset    string    `json:"asset"`
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

func (c *HTTPClassifier) Predict(ctx context.Context, features []float64) ([2]float64, error) {
	var out [2]float64
	var pr predictResponse
	err := c.base.PostJSONWithRetry(ctx, "/predict", predictRequest{Asset: c.asset, Features: features}, &pr, predictAttempts)
	if err != nil {
		return out, fmt.Errorf("predict %s: %w", c.asset, err)
	}
	if len(pr.Probabilities) != 2 {
		return out, fmt.Errorf("predict %s: want 2 probabilities, got %d", c.asset, len(pr.Probabilities))
	}
	for i, p := range pr.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return out, fmt.Errorf("predict %s: probability %v out of range", c.asset, p)
		}
		out[i] = p
	}
	return out, nil
}

// Fleet maps assets to classifiers. Assets without a trained model are absent.
type Fleet struct {
	members map[string]dservice.Classifier
}

var _ dservice.ClassifierFleet = (*Fleet)(nil)

// NewHTTPFleet builds one classifier per asset against a shared model server.
// An empty serviceURL yields an empty fleet.
func NewHTTPFleet(serviceURL string, assets []string, timeout time.Duration) *Fleet {
	f := &Fleet{members: make(map[string]dservice.Classifier, len(assets))}
	if strings.TrimSpace(serviceURL) == "" {
		return f
	}
	base := NewHTTPServiceBase(serviceURL, timeout)
	for _, a := range assets {
		f.members[a] = &HTTPClassifier{asset: a, base: base}
	}
	return f
}

// NewFleet builds a fleet from an explicit map.
func NewFleet(members map[string]dservice.Classifier) *Fleet {
	m := make(map[string]dservice.Classifier, len(members))
	for k, v := range members {
		m[k] = v
	}
	return &Fleet{members: m}
}

func (f *Fleet) For(asset string) (dservice.Classifier, bool) {
	c, ok := f.members[asset]
	return c, ok
}

// Assets lists the covered assets.
func (f *Fleet) Assets() []string {
	out := make([]string, 0, len(f.members))
	for a := range f.members {
		out = append(out, a)
	}
	return out
}
