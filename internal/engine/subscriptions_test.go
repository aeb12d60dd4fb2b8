package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/ir"
	"github.com/roach88/factlog/internal/testutil"
)

func TestQuery_RunsImmediatelyWhenIdle(t *testing.T) {
	s := newTestStore(t)
	s.Assert(name.Of(ir.Int(1), ir.String("Alice")))
	settle(t, s)

	rec := testutil.NewRecorder()
	unsubscribe := s.Query([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, rec.Record)
	defer unsubscribe()

	require.Equal(t, 1, rec.Count(), "delivered before Query returned")
	assert.Equal(t, []map[string]ir.Value{{"id": ir.Int(1), "name": ir.String("Alice")}}, maps(rec.Last()))
}

func TestQuery_EmptyQueryYieldsOneEmptyContext(t *testing.T) {
	s := newTestStore(t)
	rec := testutil.NewRecorder()
	unsubscribe := s.Query(nil, rec.Record)
	defer unsubscribe()

	require.Equal(t, 1, rec.Count())
	require.Len(t, rec.Last(), 1)
	assert.Equal(t, 0, rec.Last()[0].Len())
}

func TestQuery_ReRunsOnEverySettle(t *testing.T) {
	s := newTestStore(t)
	rec := testutil.NewRecorder()
	unsubscribe := s.Query([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, rec.Record)
	defer unsubscribe()

	s.Assert(name.Of(ir.Int(1), ir.String("Alice")))
	settle(t, s)
	s.Assert(name.Of(ir.Int(2), ir.String("Bob")))
	settle(t, s)

	assert.Equal(t, 3, rec.Count())
	assert.Len(t, rec.Last(), 2)
}

func TestQuery_SeesDerivedFacts(t *testing.T) {
	s := newTestStore(t)
	s.When(adultPatterns(), adultRule)
	settle(t, s)

	rec := testutil.NewRecorder()
	unsubscribe := s.Query([]ir.Pattern{tag.Match(ir.Var("id"), ir.String("adult"))}, rec.Record)
	defer unsubscribe()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	settle(t, s)
	assert.Equal(t, []map[string]ir.Value{{"id": ir.Int(1)}}, maps(rec.Last()))
}

func TestQuery_RegisteredMidRecomputeWaitsForSettle(t *testing.T) {
	s := newTestStore(t)
	gate := testutil.NewGate()
	defer gate.Release()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		if err := gate.Wait(ctx); err != nil {
			return nil, err
		}
		return adultRule(ctx, b)
	})
	<-gate.Entered()

	rec := testutil.NewRecorder()
	unsubscribe := s.Query([]ir.Pattern{tag.Match(ir.Var("id"), ir.Var("tag"))}, rec.Record)
	defer unsubscribe()
	assert.Equal(t, 0, rec.Count(), "no immediate delivery while processing")

	gate.Release()
	settle(t, s)
	require.Equal(t, 1, rec.Count())
	assert.Equal(t, []map[string]ir.Value{{"id": ir.Int(1), "tag": ir.String("adult")}}, maps(rec.Last()))
}

func TestQuery_Unsubscribe(t *testing.T) {
	s := newTestStore(t)
	rec := testutil.NewRecorder()
	unsubscribe := s.Query([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, rec.Record)
	require.Equal(t, 1, rec.Count())

	unsubscribe()
	unsubscribe()
	s.Assert(name.Of(ir.Int(1), ir.String("Alice")))
	settle(t, s)

	assert.Equal(t, 1, rec.Count())
	assert.Equal(t, 0, s.Stats().Queries)
}

func TestQuery_CallbackMayMutateStore(t *testing.T) {
	s := newTestStore(t)
	var fired atomic.Bool
	unsubscribe := s.Query([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, func(results []ir.Bindings) {
		if len(results) == 1 && fired.CompareAndSwap(false, true) {
			id, _ := results[0].Get("id")
			s.Assert(tag.Of(id, ir.String("greeted")))
		}
	})
	defer unsubscribe()

	s.Assert(name.Of(ir.Int(1), ir.String("Alice")))
	require.Eventually(t, func() bool {
		return containsFact(s.Statements(), tag.Of(ir.Int(1), ir.String("greeted")))
	}, 5*time.Second, time.Millisecond)
	settle(t, s)
}

func TestQueryOnce_ReturnsCurrentResults(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext(t)
	s.Assert(name.Of(ir.Int(1), ir.String("Alice")), age.Of(ir.Int(1), ir.Int(30)))

	got, err := s.QueryOnce(ctx,
		name.Match(ir.Var("id"), ir.Var("name")),
		age.Match(ir.Var("id"), ir.Var("age")))
	require.NoError(t, err)
	assert.Equal(t, []map[string]ir.Value{
		{"id": ir.Int(1), "name": ir.String("Alice"), "age": ir.Int(30)},
	}, maps(got))
	assert.Equal(t, 0, s.Stats().Queries, "the subscription removed itself")
}

func TestQueryOnce_NoMatches(t *testing.T) {
	s := newTestStore(t)
	got, err := s.QueryOnce(testContext(t), name.Match(ir.Var("id"), ir.String("Nobody")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryOnce_ExactlyOneDelivery(t *testing.T) {
	s := newTestStore(t)
	gate := testutil.NewGate()
	defer gate.Release()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		if err := gate.Wait(ctx); err != nil {
			return nil, err
		}
		return adultRule(ctx, b)
	})
	<-gate.Entered()

	type result struct {
		got []ir.Bindings
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, err := s.QueryOnce(context.Background(), tag.Match(ir.Var("id"), ir.String("adult")))
		done <- result{got, err}
	}()

	require.Eventually(t, func() bool { return s.Stats().Queries == 1 }, 5*time.Second, time.Millisecond)
	gate.Release()

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, []map[string]ir.Value{{"id": ir.Int(1)}}, maps(r.got))

	s.Assert(age.Of(ir.Int(2), ir.Int(40)))
	settle(t, s)
	assert.Equal(t, 0, s.Stats().Queries)
}

func TestQueryOnce_ContextCancelled(t *testing.T) {
	s := newTestStore(t)
	gate := testutil.NewGate()
	defer gate.Release()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		_ = gate.Wait(ctx)
		return adultRule(ctx, b)
	})
	<-gate.Entered()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.QueryOnce(ctx, tag.Match(ir.Var("id"), ir.Var("tag")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, s.Stats().Queries)
}

func TestQueryOnce_StoreClosedWhileWaiting(t *testing.T) {
	s := New(WithLogger(discardLogger()))
	gate := testutil.NewGate()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		_ = gate.Wait(ctx)
		return nil, ctx.Err()
	})
	<-gate.Entered()

	errc := make(chan error, 1)
	go func() {
		_, err := s.QueryOnce(context.Background(), tag.Match(ir.Var("id"), ir.Var("tag")))
		errc <- err
	}()
	require.Eventually(t, func() bool { return s.Stats().Queries == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	assert.True(t, IsStoreClosed(<-errc))
}

func TestSettle_ContextDeadline(t *testing.T) {
	s := newTestStore(t)
	gate := testutil.NewGate()
	defer gate.Release()

	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		_ = gate.Wait(ctx)
		return nil, nil
	})
	<-gate.Entered()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Settle(ctx), context.DeadlineExceeded)
	assert.True(t, s.Stats().Processing)
}

func TestClose_FromQueryCallback(t *testing.T) {
	s := newTestStore(t)
	closed := make(chan error, 1)
	var deliveries atomic.Int32
	s.Query([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, func([]ir.Bindings) {
		if deliveries.Add(1) == 2 {
			go func() { closed <- s.Close() }()
		}
	})

	s.Assert(name.Of(ir.Int(1), ir.String("Alice")))
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	_, err := s.QueryOnce(context.Background())
	assert.True(t, IsStoreClosed(err))
	assert.Equal(t, int32(2), deliveries.Load())
}

func TestClose_FromRuleCallback(t *testing.T) {
	s := newTestStore(t)
	closed := make(chan error, 1)
	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
	s.When(adultPatterns(), func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error) {
		go func() { closed <- s.Close() }()
		<-ctx.Done()
		return adultRule(ctx, b)
	})

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Empty(t, s.Derived())
}
