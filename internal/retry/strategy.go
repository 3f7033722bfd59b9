package retry

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy returns how long to wait before retry number n and whether the
// retry budget is exhausted.
type Strategy interface {
	Sleep(n uint) (time.Duration, bool)
}

type never struct{}

func NewNever() Strategy {
	return never{}
}

func (never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

type Entropy func(int64) int64

// ExponentialBackOff waits a random duration in [0, min(base*2^n, cap)), the
// "full jitter" variant.
type ExponentialBackOff struct {
	Base          time.Duration
	Cap           time.Duration
	MaxRetryCount uint
	Entropy       Entropy
}

func NewExponentialBackOff(base time.Duration, maxDelay time.Duration, maxRetryCount uint, entropy Entropy) *ExponentialBackOff {
	return &ExponentialBackOff{
		Base:          base,
		Cap:           maxDelay,
		MaxRetryCount: maxRetryCount,
		Entropy:       entropy,
	}
}

func (eb *ExponentialBackOff) Sleep(n uint) (time.Duration, bool) {
	if n >= eb.MaxRetryCount {
		return 0, true
	}

	ceiling := int64(eb.Cap)
	if n < 63 && int64(eb.Base) <= math.MaxInt64>>n {
		ceiling = clamp(int64(eb.Base)<<n, 0, int64(eb.Cap))
	}
	return time.Duration(eb.entropy()(ceiling)), false
}

// MaxSleep is the longest single wait the strategy allows.
func (eb *ExponentialBackOff) MaxSleep() time.Duration {
	return eb.Cap
}

func (eb *ExponentialBackOff) entropy() Entropy {
	if eb.Entropy != nil {
		return eb.Entropy
	}
	return func(n int64) int64 {
		if n <= 0 {
			return 0
		}
		return rand.Int63n(n)
	}
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
