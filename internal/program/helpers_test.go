package program

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/roach88/factlog/internal/engine"
	"github.com/roach88/factlog/internal/ir"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func newStore(t *testing.T) *engine.Store {
	t.Helper()
	s := engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func maps(bs []ir.Bindings) []map[string]ir.Value {
	out := make([]map[string]ir.Value, len(bs))
	for i, b := range bs {
		out[i] = b.Map()
	}
	return out
}
