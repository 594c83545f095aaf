package ratelimiter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second

	idleTTL            = 10 * time.Minute
	sweepEveryNthCalls = 256
)

// Limiter keeps one token bucket per key. Buckets that were not used for
// idleTTL are dropped.
type Limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	calls   int
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a limiter allowing rps events per second with the given burst
// for every key. Non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limit:   limit,
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).AllowN(l.now(), 1)
}

func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls%sweepEveryNthCalls == 0 {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.buckets, key)
		}
	}
}

// ChatPacer spaces out outgoing Telegram messages: one per second in
// private chats and one per three seconds in groups.
type ChatPacer struct {
	private *Limiter
	group   *Limiter
}

func NewChatPacer() *ChatPacer {
	return &ChatPacer{
		private: New(1/privateChatRate.Seconds(), 1),
		group:   New(1/groupChatRate.Seconds(), 1),
	}
}

func (p *ChatPacer) Wait(ctx context.Context, chatID int64) error {
	key := strconv.FormatInt(chatID, 10)

	if getRate(chatID) == groupChatRate {
		return p.group.Wait(ctx, key)
	}
	return p.private.Wait(ctx, key)
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
