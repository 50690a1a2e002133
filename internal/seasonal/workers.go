package seasonal

import (
	"sync"

	"github.com/westtrac/parts-insights/internal/domain"
)

type patternJob struct {
	idx  int
	rows []domain.MonthlyUsage
}

type patternResult struct {
	pattern domain.SeasonalPattern
	failure *domain.EntityFailure
}

// computePatterns runs ComputePattern for every entity group on a pool of
// workers. Results keep the order of groups.
func computePatterns(level domain.Level, groups [][]domain.MonthlyUsage, workerCount int) []patternResult {
	results := make([]patternResult, len(groups))
	if len(groups) == 0 {
		return results
	}
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(groups) {
		workerCount = len(groups)
	}

	jobChan := make(chan patternJob, len(groups))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				pattern, err := ComputePattern(level, job.rows)
				if err != nil {
					f := domain.FailureFromError(level, job.rows[0].EntityID, err)
					results[job.idx] = patternResult{failure: &f}
					continue
				}
				results[job.idx] = patternResult{pattern: pattern}
			}
		}()
	}

	for i, rows := range groups {
		jobChan <- patternJob{idx: i, rows: rows}
	}
	close(jobChan)

	wg.Wait()
	return results
}
