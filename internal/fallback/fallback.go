package fallback

import (
	"context"
	"fmt"
)

// Tier identifies which attempt produced a result.
type Tier int

const (
	TierPrimary Tier = iota
	TierSecondary
	TierTertiary
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Result carries the produced value and the tier that produced it.
// FailedErr records why earlier tiers fell through; it is informational
// only and is never non-nil for a primary-tier result.
type Result[T any] struct {
	Value     T
	Tier      Tier
	FailedErr error
}

// Degraded reports whether the result came from a non-primary tier.
func (r Result[T]) Degraded() bool {
	return r.Tier != TierPrimary
}

// Run executes tiers in order until one succeeds. primary is required,
// secondary may be nil, tertiary must be total: it cannot fail and must
// not block, so Run always returns a value. Errors from failed tiers are
// combined into Result.FailedErr for logging by the caller.
func Run[T any](ctx context.Context, primary func(context.Context) (T, error), secondary func(context.Context) (T, error), tertiary func() T) Result[T] {
	if primary != nil {
		v, err := primary(ctx)
		if err == nil {
			return Result[T]{Value: v, Tier: TierPrimary}
		}
		if secondary != nil {
			sv, serr := secondary(ctx)
			if serr == nil {
				return Result[T]{Value: sv, Tier: TierSecondary, FailedErr: err}
			}
			return Result[T]{
				Value:     tertiary(),
				Tier:      TierTertiary,
				FailedErr: fmt.Errorf("primary tier: %w; secondary tier: %v", err, serr),
			}
		}
		return Result[T]{
			Value:     tertiary(),
			Tier:      TierTertiary,
			FailedErr: fmt.Errorf("primary tier: %w", err),
		}
	}

	if secondary != nil {
		sv, serr := secondary(ctx)
		if serr == nil {
			return Result[T]{Value: sv, Tier: TierSecondary}
		}
		return Result[T]{
			Value:     tertiary(),
			Tier:      TierTertiary,
			FailedErr: fmt.Errorf("secondary tier: %w", serr),
		}
	}

	return Result[T]{Value: tertiary(), Tier: TierTertiary}
}
