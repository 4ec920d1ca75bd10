package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits caps the throughput of a frame transfer. A zero field is unlimited.
type Limits struct {
	// FramesPerSecond is the sustained frame rate. Bursts of up to one
	// second's worth of frames are allowed.
	FramesPerSecond float64 `mapstructure:"frames_per_second" validate:"gte=0" yaml:"frames_per_second"`

	// BytesPerSecond is the sustained payload rate.
	BytesPerSecond int64 `mapstructure:"bytes_per_second" validate:"gte=0" yaml:"bytes_per_second"`
}

// IsZero reports whether l imposes no limit.
func (l Limits) IsZero() bool {
	return l.FramesPerSecond <= 0 && l.BytesPerSecond <= 0
}

// RateLimiter throttles frame copies with two token buckets, one counting
// frames and one counting bytes. A frame waits until both allow it.
//
// A nil *RateLimiter never waits. All methods are safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	limits Limits
	frames *rate.Limiter
	bytes  *rate.Limiter
}

// New returns a limiter enforcing l.
//
//	// At most 24 frames and 200 MiB per second.
//	limiter := ratelimiter.New(ratelimiter.Limits{FramesPerSecond: 24, BytesPerSecond: 200 << 20})
func New(l Limits) *RateLimiter {
	r := &RateLimiter{}
	r.SetLimits(l)
	return r
}

// SetLimits replaces the limits. Frames already waiting pick them up.
func (r *RateLimiter) SetLimits(l Limits) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limits = l
	r.frames = bucket(r.frames, l.FramesPerSecond, int(max(1, l.FramesPerSecond)))
	r.bytes = bucket(r.bytes, float64(l.BytesPerSecond), int(l.BytesPerSecond))
}

// bucket adjusts lim to the given rate, or allocates it. A rate <= 0 is
// unlimited.
func bucket(lim *rate.Limiter, perSecond float64, burst int) *rate.Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
		burst = 0
	}
	if lim == nil {
		return rate.NewLimiter(limit, burst)
	}
	lim.SetLimit(limit)
	lim.SetBurst(burst)
	return lim
}

// Limits returns the current limits.
func (r *RateLimiter) Limits() Limits {
	if r == nil {
		return Limits{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limits
}

// WaitFrame blocks until a frame of size bytes may be copied, or ctx is
// done. A frame larger than the byte bucket is admitted once the bucket is
// full, so a low byte rate slows large frames down without rejecting them.
func (r *RateLimiter) WaitFrame(ctx context.Context, size int) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	frames, bytes, byteRate := r.frames, r.bytes, r.limits.BytesPerSecond
	if byteRate > 0 && int64(size) > byteRate && bytes.Burst() < size {
		bytes.SetBurst(size)
	}
	r.mu.Unlock()

	if err := frames.Wait(ctx); err != nil {
		return fmt.Errorf("frame limiter: %w", err)
	}
	if byteRate > 0 && size > 0 {
		if err := bytes.WaitN(ctx, size); err != nil {
			return fmt.Errorf("byte limiter: %w", err)
		}
	}
	return nil
}

// AllowFrame reports whether a frame of size bytes may be copied now,
// consuming tokens only if it may.
func (r *RateLimiter) AllowFrame(size int) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limits.BytesPerSecond <= 0 || size <= 0 {
		return r.frames.Allow()
	}
	if r.bytes.Tokens() < float64(size) {
		return false
	}
	if r.limits.FramesPerSecond > 0 && r.frames.Tokens() < 1 {
		return false
	}
	return r.frames.Allow() && r.bytes.AllowN(time.Now(), size)
}

// Tokens returns the frames that may currently be copied without waiting.
// It is +Inf when frames are unlimited.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return math.Inf(1)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limits.FramesPerSecond <= 0 {
		return math.Inf(1)
	}
	return r.frames.Tokens()
}
