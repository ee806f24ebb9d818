package extract

import (
	"context"
	"runtime"
	"sync"

	"repomap/internal/discover"
	"repomap/internal/tag"
)

// Result pairs a discovered file with its extraction outcome.
type Result struct {
	Entry discover.FileEntry
	Tags  tag.FileTags
	Err   error
}

// Parallel runs fn over files with a bounded worker pool and returns one
// result per file, in input order. workers <= 0 uses GOMAXPROCS. Once the
// context is done, remaining files fail with the context error.
func Parallel(ctx context.Context, files []discover.FileEntry, workers int, fn func(context.Context, discover.FileEntry) (tag.FileTags, error)) []Result {
	results := make([]Result, len(files))
	if len(files) == 0 {
		return results
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}

	work := make(chan int, len(files))
	for i := range files {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				entry := files[idx]
				results[idx].Entry = entry

				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					continue
				}

				tags, err := fn(ctx, entry)
				results[idx].Tags = tags
				results[idx].Err = err
			}
		}()
	}
	wg.Wait()

	return results
}
