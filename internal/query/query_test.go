package query_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

func newClient(t *testing.T, ttl time.Duration) *query.Client {
	t.Helper()
	c := query.New(ttl, observability.NewMetrics(), zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func counting(calls *int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestFetch_CachesWithinTTL(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx := query.WithScope(context.Background(), query.UserScope(1))
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := query.Fetch(ctx, c, query.K("leads", 0, 20), counting(&calls, "page"))
		require.NoError(t, err)
		assert.Equal(t, "page", v)
	}
	assert.EqualValues(t, 1, calls)
}

func TestFetch_ParamsAreDistinctKeys(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx := context.Background()
	var calls int32

	_, _ = query.Fetch(ctx, c, query.K("leads", 0), counting(&calls, "a"))
	_, _ = query.Fetch(ctx, c, query.K("leads", 1), counting(&calls, "b"))
	assert.EqualValues(t, 2, calls)
}

func TestFetch_ScopesAreIsolated(t *testing.T) {
	c := newClient(t, time.Minute)
	var calls int32

	a := query.WithScope(context.Background(), query.UserScope(1))
	b := query.WithScope(context.Background(), query.UserScope(2))

	va, _ := query.Fetch(a, c, query.K("leads"), counting(&calls, "for-1"))
	vb, _ := query.Fetch(b, c, query.K("leads"), counting(&calls, "for-2"))

	assert.Equal(t, "for-1", va)
	assert.Equal(t, "for-2", vb)
	assert.EqualValues(t, 2, calls)
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx := context.Background()
	var calls int32

	_, err := query.Fetch(ctx, c, query.K("stats"), func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("backend down")
	})
	require.Error(t, err)

	v, err := query.Fetch(ctx, c, query.K("stats"), func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 2, calls)
}

func TestFetch_ExpiresAfterTTL(t *testing.T) {
	c := newClient(t, 30*time.Millisecond)
	ctx := context.Background()
	var calls int32

	_, _ = query.Fetch(ctx, c, query.K("categories"), counting(&calls, "x"))
	time.Sleep(60 * time.Millisecond)
	_, _ = query.Fetch(ctx, c, query.K("categories"), counting(&calls, "x"))
	assert.EqualValues(t, 2, calls)
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})

	fn := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "slow", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = query.Fetch(ctx, c, query.K("leads", "kanban"), fn)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls)
	for _, r := range results {
		assert.Equal(t, "slow", r)
	}
}

func TestInvalidate_ForcesRefetchAcrossScopes(t *testing.T) {
	c := newClient(t, time.Minute)
	var leadCalls, productCalls int32

	s1 := query.WithScope(context.Background(), query.UserScope(1))
	s2 := query.WithScope(context.Background(), query.UserScope(2))

	_, _ = query.Fetch(s1, c, query.K("leads"), counting(&leadCalls, "x"))
	_, _ = query.Fetch(s2, c, query.K("leads"), counting(&leadCalls, "x"))
	_, _ = query.Fetch(s1, c, query.K("products"), counting(&productCalls, "p"))

	c.Invalidate("leads")

	_, _ = query.Fetch(s1, c, query.K("leads"), counting(&leadCalls, "x"))
	_, _ = query.Fetch(s2, c, query.K("leads"), counting(&leadCalls, "x"))
	_, _ = query.Fetch(s1, c, query.K("products"), counting(&productCalls, "p"))

	assert.EqualValues(t, 4, leadCalls)
	assert.EqualValues(t, 1, productCalls, "other resources stay cached")
}

func TestForget_DropsOneScope(t *testing.T) {
	c := newClient(t, time.Minute)
	var calls int32

	s1 := query.WithScope(context.Background(), query.UserScope(1))
	s2 := query.WithScope(context.Background(), query.UserScope(2))
	_, _ = query.Fetch(s1, c, query.K("leads"), counting(&calls, "x"))
	_, _ = query.Fetch(s2, c, query.K("leads"), counting(&calls, "x"))

	c.Forget(query.UserScope(1))

	_, _ = query.Fetch(s1, c, query.K("leads"), counting(&calls, "x"))
	_, _ = query.Fetch(s2, c, query.K("leads"), counting(&calls, "x"))
	assert.EqualValues(t, 3, calls)
}

func TestFetch_ContextCancelled(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)

	_, err := query.Fetch(ctx, c, query.K("leads"), func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_SharedCallSurvivesOneCallerLeaving(t *testing.T) {
	c := newClient(t, time.Minute)
	scope := query.WithScope(context.Background(), query.UserScope(1))
	leaving, cancel := context.WithCancel(scope)
	defer cancel()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "leads", nil
	}

	errA := make(chan error, 1)
	go func() {
		_, err := query.Fetch(leaving, c, query.K("leads"), fn)
		errA <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := query.Fetch(scope, c, query.K("leads"), fn)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "leads", b.v)
	assert.EqualValues(t, 1, calls)
}

func TestFetch_SharedCallIsBoundedByFetchTimeout(t *testing.T) {
	c := query.New(time.Minute, observability.NewMetrics(), zap.NewNop(), query.WithFetchTimeout(20*time.Millisecond))
	t.Cleanup(c.Close)

	_, err := query.Fetch(context.Background(), c, query.K("leads"), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_InFlightResultNotCachedAcrossInvalidate(t *testing.T) {
	c := newClient(t, time.Minute)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	stale := make(chan string, 1)
	go func() {
		v, _ := query.Fetch(ctx, c, query.K("leads"), func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-mutation", nil
		})
		stale <- v
	}()
	<-started

	c.Invalidate("leads")

	// a read issued after the mutation does not join the older flight
	var calls int32
	v, err := query.Fetch(ctx, c, query.K("leads"), counting(&calls, "after-mutation"))
	require.NoError(t, err)
	assert.Equal(t, "after-mutation", v)

	close(release)
	assert.Equal(t, "before-mutation", <-stale)

	v, err = query.Fetch(ctx, c, query.K("leads"), counting(&calls, "refetched"))
	require.NoError(t, err)
	assert.Equal(t, "after-mutation", v, "the stale result must not overwrite the fresh one")
	assert.EqualValues(t, 1, calls)
}
