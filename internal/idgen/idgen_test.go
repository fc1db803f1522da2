package idgen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memChecker counts collisions against an in-memory set of taken values.
type memChecker struct {
	taken  map[string]bool
	probes []string
}

func newMemChecker() *memChecker {
	return &memChecker{taken: make(map[string]bool)}
}

func (m *memChecker) CountField(_ context.Context, _, value string) (int64, error) {
	m.probes = append(m.probes, value)
	if m.taken[value] {
		return 1, nil
	}
	return 0, nil
}

// alwaysTaken simulates a fully saturated field.
type alwaysTaken struct {
	probes []string
}

func (a *alwaysTaken) CountField(_ context.Context, _, _ string) (int64, error) {
	a.probes = append(a.probes, "x")
	return 1, nil
}

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	tests := []struct {
		name     string
		alphabet Alphabet
		pool     string
	}{
		{"alnum", Alnum, alnumPool},
		{"alpha", Alpha, alphaPool},
		{"numeric", Numeric, numericPool},
		{"nozero", NoZero, nozeroPool},
		{"md5", MD5, "0123456789abcdef"},
		{"sha1", SHA1, "0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(newMemChecker())
			for i := 0; i < 50; i++ {
				id, err := g.Generate(context.Background(), "card_id", Options{
					MinLen: 4, MaxLen: 8, Alphabet: tt.alphabet,
				})
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(id), 4)
				assert.LessOrEqual(t, len(id), 8)
				for _, r := range id {
					assert.True(t, strings.ContainsRune(tt.pool, r), "unexpected character %q", r)
				}
			}
		})
	}
}

func TestGenerate_FixedLength(t *testing.T) {
	g := New(newMemChecker())
	id, err := g.Generate(context.Background(), "card_id", Options{MinLen: 8, MaxLen: 8, Alphabet: Alnum})
	require.NoError(t, err)
	assert.Len(t, id, 8)
}

func TestGenerate_InvalidBounds(t *testing.T) {
	g := New(newMemChecker())
	_, err := g.Generate(context.Background(), "card_id", Options{MinLen: 0, MaxLen: 4})
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), "card_id", Options{MinLen: 6, MaxLen: 4})
	assert.Error(t, err)
}

func TestGenerate_NeverReturnsTakenValue(t *testing.T) {
	// A collision-heavy single-digit alphabet forces constant collisions
	// so growth has to kick in for allocation to keep succeeding.
	checker := newMemChecker()
	g := New(checker)

	for i := 0; i < 10000; i++ {
		id, err := g.Generate(context.Background(), "card_id", Options{
			MinLen: 1, MaxLen: 2, Alphabet: NoZero,
		})
		require.NoError(t, err)
		require.False(t, checker.taken[id], "allocator returned an existing value %q", id)
		checker.taken[id] = true
	}
}

func TestGenerate_GrowsUnderCollisionPressure(t *testing.T) {
	checker := newMemChecker()
	g := New(checker)

	// Exhaust every nozero value of length 1 and 2, then allocate more;
	// the survivors must be longer.
	for i := 0; i < 150; i++ {
		id, err := g.Generate(context.Background(), "card_id", Options{
			MinLen: 1, MaxLen: 1, Alphabet: NoZero,
		})
		require.NoError(t, err)
		checker.taken[id] = true
	}

	longest := 0
	for id := range checker.taken {
		if len(id) > longest {
			longest = len(id)
		}
	}
	assert.Greater(t, longest, 1, "length never grew despite collision pressure")
}

func TestGenerate_ExhaustionIsDefinite(t *testing.T) {
	checker := &alwaysTaken{}
	g := New(checker)

	_, err := g.Generate(context.Background(), "card_id", Options{
		MinLen: 2, MaxLen: 4, Alphabet: Alnum, MaxAttempts: 50,
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, checker.probes, 50)
}

func TestGenerate_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(&alwaysTaken{})
	_, err := g.Generate(ctx, "card_id", Options{MinLen: 2, MaxLen: 4, Alphabet: Alnum})
	assert.ErrorIs(t, err, context.Canceled)
}
