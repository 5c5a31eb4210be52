package service

import (
	"context"

	"X402/internal/domain/models"
)

// MarketSnapshotBuilder computes the latest feature row for an asset.
type MarketSnapshotBuilder interface {
	Snapshot(ctx context.Context, asset string) (*models.MarketSnapshot, error)
}

// Classifier returns the [down, up] class probabilities for a feature vector.
type Classifier interface {
	Predict(ctx context.Context, features []float64) ([2]float64, error)
}

// ClassifierFleet maps assets to their classifier. A missing entry is "no opinion".
type ClassifierFleet interface {
	For(asset string) (Classifier, bool)
}

// Oracle arbitrates a decision snapshot. Any error means unavailable.
type Oracle interface {
	Advise(ctx context.Context, snap models.DecisionSnapshot) (models.Verdict, error)
}

// NewsSource returns a short headline digest.
type NewsSource interface {
	Digest(ctx context.Context) (string, error)
}

// PaymentVerifier checks a transaction reference against a challenge.
// It never returns an error; every failure is false.
type PaymentVerifier interface {
	Verify(ctx context.Context, proof string, want models.Challenge) bool
}
