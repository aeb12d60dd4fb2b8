package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/ir"
)

var (
	name     = ir.DefineField("person/name", ir.KindString)
	age      = ir.DefineField("person/age", ir.KindInt)
	tag      = ir.DefineField("person/tag", ir.KindString)
	eligible = ir.DefineField("person/eligible", ir.KindBool)
	knows    = ir.DefineField("person/knows", ir.KindAny)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	s := New(opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func settle(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// adultRule tags every entity aged 18 or more.
func adultRule(_ context.Context, b ir.Bindings) ([]ir.Fact, error) {
	id, _ := b.Get("id")
	n, _ := b.GetInt("age")
	if n < 18 {
		return nil, nil
	}
	return []ir.Fact{tag.Of(id, ir.String("adult"))}, nil
}

func adultPatterns() []ir.Pattern {
	return []ir.Pattern{age.Match(ir.Var("id"), ir.Var("age"))}
}

func maps(results []ir.Bindings) []map[string]ir.Value {
	out := make([]map[string]ir.Value, len(results))
	for i, b := range results {
		out[i] = b.Map()
	}
	return out
}

func containsFact(facts []ir.Fact, f ir.Fact) bool {
	for _, g := range facts {
		if g.SameAs(f) {
			return true
		}
	}
	return false
}
