package dispatch

import (
	"sync"

	"github.com/vitalpipe/ingest/internal/model"
)

// blockingPool is a small fixed worker pool for the CPU-heavy per-record
// validation work of one family's bucket once it crosses
// cfg.BlockingPoolThreshold records (spec.md §5: "CPU-bound validation
// and grouping must not hold the scheduler... those steps run on a
// dedicated blocking-task pool"). One pool runs at most workerCount
// goroutines; validateRecords builds a separate pool for each oversized
// bucket, so several large buckets at once each get their own workers.
type blockingPool struct {
	workerCount int
}

func newBlockingPool(workerCount int) *blockingPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &blockingPool{workerCount: workerCount}
}

// validateAll runs validate against every record concurrently, bounded
// by the pool's worker count, and returns one error slot per record in
// input order.
func (p *blockingPool) validateAll(records []model.HealthMetric, validate func(model.HealthMetric) error) []error {
	errs := make([]error, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := p.workerCount
	if workers > len(records) {
		workers = len(records)
	}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = validate(records[i])
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return errs
}
