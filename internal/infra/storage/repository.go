package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

var (
	// ErrUnknownDriver is returned for an unsupported storage driver name
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// ResultRepository persists recovery results
type ResultRepository interface {
	// Save stores a result
	Save(ctx context.Context, result *domain.RecoveryResult) error

	// Recent returns up to limit of the newest results for a node, oldest first
	Recent(ctx context.Context, nodeID string, limit int) ([]*domain.RecoveryResult, error)

	// Count returns the number of stored results for a node
	Count(ctx context.Context, nodeID string) (int, error)

	// DeleteOlderThan removes results completed before the cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, nodeID string, before time.Time) (int64, error)
}
