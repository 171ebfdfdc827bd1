package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/redis"
)

const (
	orderNumberPrefix = "BZS"
	sequenceTTL       = 48 * time.Hour
)

// NumberGenerator issues human readable order numbers of the form
// BZS-YYYYMMDD-NNNNNN from a per-day Redis sequence. Without Redis, or when
// the sequence is unreachable, the suffix is 8 random hex characters.
type NumberGenerator struct {
	counter redis.Counter
	logg    *logger.Logger
	random  io.Reader
}

// NewNumberGenerator builds a generator. counter may be nil.
func NewNumberGenerator(counter redis.Counter, logg *logger.Logger) *NumberGenerator {
	return &NumberGenerator{counter: counter, logg: logg, random: rand.Reader}
}

// Next returns a fresh order number for an order created at now.
func (g *NumberGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	if g.counter != nil {
		seq, err := g.counter.IncrWithTTL(ctx, g.counter.OrderNumberKey(day), sequenceTTL)
		if err == nil {
			return fmt.Sprintf("%s-%s-%06d", orderNumberPrefix, day, seq), nil
		}
		if g.logg != nil {
			g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "order number sequence unavailable, using random suffix")
		}
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, day, strings.ToUpper(hex.EncodeToString(buf))), nil
}
