package admin

import (
	"context"
	"runtime"
	"sync"
)

type poolResult[R any] struct {
	index int
	value R
}

// runPool applies work to every job on a fixed number of workers and
// returns the results in job order.
//
// Workers receive job indexes over a channel and send results back over
// another; only the calling goroutine assembles the result slice. runPool
// returns after every worker has exited. workers <= 0 means one per CPU.
func runPool[J, R any](ctx context.Context, workers int, jobs []J, work func(context.Context, J) R) []R {
	if len(jobs) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobs))

	indexes := make(chan int)
	results := make(chan poolResult[R], workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results <- poolResult[R]{index: i, value: work(ctx, jobs[i])}
			}
		}()
	}

	go func() {
		for i := range jobs {
			indexes <- i
		}
		close(indexes)
		wg.Wait()
		close(results)
	}()

	out := make([]R, len(jobs))
	for r := range results {
		out[r.index] = r.value
	}
	return out
}
