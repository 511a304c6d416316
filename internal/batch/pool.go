// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"sync"

	"docsafe/internal/document"
)

// job is one paragraph to decide and classify. pos is its position in
// the filtered sequence.
type job struct {
	pos      int
	para     document.Paragraph
	previous string
}

type outcome struct {
	pos      int
	result   document.ClassifiedParagraph
	excluded bool
	err      error
}

// workerPool runs a fixed set of jobs on a bounded number of goroutines
// and hands the outcomes back in job order
type workerPool struct {
	workers int
	process func(context.Context, job) outcome
}

func newWorkerPool(workers int, process func(context.Context, job) outcome) *workerPool {
	if workers < 1 {
		workers = 1
	}
	return &workerPool{workers: workers, process: process}
}

func (wp *workerPool) run(ctx context.Context, jobs []job) []outcome {
	out := make([]outcome, len(jobs))
	if len(jobs) == 0 {
		return out
	}
	if wp.workers == 1 || len(jobs) == 1 {
		for i, j := range jobs {
			out[i] = wp.process(ctx, j)
		}
		return out
	}

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < min(wp.workers, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				// each slot is written by exactly one worker
				out[i] = wp.process(ctx, jobs[i])
			}
		}()
	}
	wg.Wait()
	return out
}
