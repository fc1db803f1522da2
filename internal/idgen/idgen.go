// Package idgen allocates short unique string identifiers for store fields.
//
// Candidates are sampled from a character pool and checked against the
// store for collisions. Every 10^(min/2) misses the length bounds grow by
// one so the expected collision probability stays bounded as the
// collection fills up. Growth is capped by an overall attempt ceiling.
package idgen

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Alphabet selects the character pool candidates are drawn from.
type Alphabet string

const (
	Alnum   Alphabet = "alnum"
	Alpha   Alphabet = "alpha"
	Numeric Alphabet = "numeric"
	NoZero  Alphabet = "nozero"
	MD5     Alphabet = "md5"
	SHA1    Alphabet = "sha1"
)

const (
	alphaPool   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alnumPool   = "0123456789" + alphaPool
	numericPool = "0123456789"
	nozeroPool  = "123456789"
)

// ErrExhausted is returned when the attempt ceiling is reached without
// finding a free identifier.
var ErrExhausted = errors.New("idgen: attempt ceiling reached without a unique id")

// CollisionChecker reports how many documents already carry value in field.
type CollisionChecker interface {
	CountField(ctx context.Context, field, value string) (int64, error)
}

// Options controls a single allocation.
type Options struct {
	MinLen      int
	MaxLen      int
	Alphabet    Alphabet
	MaxAttempts int // total probe ceiling; 0 means DefaultMaxAttempts
}

// DefaultMaxAttempts bounds an allocation that keeps colliding.
const DefaultMaxAttempts = 10000

// Generator allocates identifiers unique within a store field.
type Generator struct {
	checker CollisionChecker
}

// New returns a Generator backed by the given collision checker.
func New(checker CollisionChecker) *Generator {
	return &Generator{checker: checker}
}

// Generate returns an identifier of length within [MinLen, MaxLen] drawn
// from the requested alphabet that has no collision in field. It blocks
// until a free value is found, the context is cancelled, or the attempt
// ceiling is hit.
func (g *Generator) Generate(ctx context.Context, field string, opts Options) (string, error) {
	if opts.MinLen <= 0 || opts.MaxLen < opts.MinLen {
		return "", fmt.Errorf("idgen: invalid length bounds [%d, %d]", opts.MinLen, opts.MaxLen)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	minLen, maxLen := opts.MinLen, opts.MaxLen
	misses := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Grow both bounds once the current size has seen enough misses.
		if float64(misses) > math.Pow(10, float64(minLen)/2.0) {
			misses = 0
			minLen++
			maxLen++
		}

		candidate := randomString(opts.Alphabet, minLen+rand.IntN(maxLen-minLen+1))
		n, err := g.checker.CountField(ctx, field, candidate)
		if err != nil {
			return "", fmt.Errorf("idgen: collision check failed: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
		misses++
	}
	return "", ErrExhausted
}

func randomString(alphabet Alphabet, length int) string {
	var pool string
	switch alphabet {
	case Alpha:
		pool = alphaPool
	case Numeric:
		pool = numericPool
	case NoZero:
		pool = nozeroPool
	case MD5:
		return truncate(fmt.Sprintf("%x", md5.Sum([]byte(uuid.NewString()))), length)
	case SHA1:
		return truncate(fmt.Sprintf("%x", sha1.Sum([]byte(uuid.NewString()))), length)
	default:
		pool = alnumPool
	}

	b := make([]byte, length)
	for i := range b {
		b[i] = pool[rand.IntN(len(pool))]
	}
	return string(b)
}

func truncate(s string, length int) string {
	if length > 0 && length < len(s) {
		return s[:length]
	}
	return s
}
