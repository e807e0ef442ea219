package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type resource struct {
	id     int
	closed bool
}

type tracker struct {
	mu     sync.Mutex
	opened []*resource
	fail   error
}

func (tr *tracker) open(context.Context) (*resource, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.fail != nil {
		return nil, tr.fail
	}
	r := &resource{id: len(tr.opened) + 1}
	tr.opened = append(tr.opened, r)
	return r, nil
}

func (tr *tracker) close(r *resource) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	r.closed = true
	return nil
}

func TestPool_ReusesHealthyResources(t *testing.T) {
	tr := &tracker{}
	p := New(2, tr.open, tr.close)
	ctx := context.Background()

	r1, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(r1, true))

	r2, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Created)
	assert.Equal(t, int64(1), stats.Reused)
	assert.Equal(t, int64(1), stats.InUse)

	require.NoError(t, p.Release(r2, true))
	require.NoError(t, p.Close())
	assert.True(t, r1.closed)
}

func TestPool_DiscardsUnhealthyResources(t *testing.T) {
	tr := &tracker{}
	p := New(1, tr.open, tr.close)
	ctx := context.Background()

	r1, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(r1, false))
	assert.True(t, r1.closed)

	r2, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.NotSame(t, r1, r2)
	assert.Equal(t, int64(1), p.Stats().Discarded)
	require.NoError(t, p.Release(r2, true))
	require.NoError(t, p.Close())
}

func TestPool_AcquireWaitsForFreeSlot(t *testing.T) {
	tr := &tracker{}
	p := New(1, tr.open, tr.close)
	defer p.Close()

	r1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))

	got := make(chan *resource)
	go func() {
		r, err := p.Acquire(context.Background())
		if err == nil {
			got <- r
		}
		close(got)
	}()
	require.NoError(t, p.Release(r1, true))
	r2 := <-got
	assert.Same(t, r1, r2)
	require.NoError(t, p.Release(r2, true))
}

func TestPool_OpenFailureFreesSlot(t *testing.T) {
	tr := &tracker{fail: fmt.Errorf("dial failed")}
	p := New(1, tr.open, tr.close)
	defer p.Close()

	_, err := p.Acquire(context.Background())
	require.Error(t, err)

	tr.fail = nil
	r, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Release(r, true))
}

func TestPool_ReleaseAfterClose(t *testing.T) {
	tr := &tracker{}
	p := New(2, tr.open, tr.close)

	r, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Release(r, true))
	assert.True(t, r.closed)

	_, err = p.Acquire(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}
