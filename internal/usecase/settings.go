package usecase

import (
	"fmt"
	"sync"

	"X402/internal/domain/models"
	"X402/pkg/util"
)

// Settings holds the operator-tunable asset and classifier weight.
type Settings struct {
	mu         sync.RWMutex
	assets     map[string]struct{}
	order      []string
	asset      string
	riskWeight float64
}

func NewSettings(assets []string, defaultAsset string, riskWeight float64) (*Settings, error) {
	s := &Settings{assets: make(map[string]struct{}, len(assets))}
	for _, a := range assets {
		if _, dup := s.assets[a]; dup {
			continue
		}
		s.assets[a] = struct{}{}
		s.order = append(s.order, a)
	}
	if err := s.SetAsset(defaultAsset); err != nil {
		return nil, err
	}
	if err := s.SetRiskWeight(riskWeight); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active asset and weight as one consistent pair.
func (s *Settings) Current() (string, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asset, s.riskWeight
}

// Assets lists the tradable universe in configured order.
func (s *Settings) Assets() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Settings) SetAsset(asset string) error {
	if _, ok := s.assets[asset]; !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownAsset, asset)
	}
	s.mu.Lock()
	s.asset = asset
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetRiskWeight(w float64) error {
	if !util.Finite(w) || w < 0 || w > 1 {
		return fmt.Errorf("risk weight must be within [0,1], got %v", w)
	}
	s.mu.Lock()
	s.riskWeight = w
	s.mu.Unlock()
	return nil
}
