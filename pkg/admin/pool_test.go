package admin

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunPool(t *testing.T) {
	ctx := context.Background()
	jobs := make([]int, 100)
	for i := range jobs {
		jobs[i] = i
	}

	var active, peak atomic.Int32
	results := runPool(ctx, 4, jobs, func(_ context.Context, j int) int {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer active.Add(-1)
		return j * j
	})

	assert.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, i*i, r, "results keep job order")
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRunPool_Empty(t *testing.T) {
	called := false
	out := runPool(context.Background(), 0, []string(nil), func(context.Context, string) int {
		called = true
		return 0
	})
	assert.Nil(t, out)
	assert.False(t, called)
}
