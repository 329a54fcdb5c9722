package service

import (
	"context"
	"runtime"

	"github.com/MilkTeaCat52/INVSC/view"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxDefaultConcurrency = 4

type BatchService interface {
	// EvaluateAll grades every submission and returns outcomes in input
	// order. One file failing does not stop the others.
	EvaluateAll(ctx context.Context, submissions []view.Submission, cfg view.BackendConfig) []view.SubmissionOutcome
}

func NewBatchService(judgementService JudgementService, concurrency int) BatchService {
	return &batchServiceImpl{judgementService: judgementService, concurrency: concurrency}
}

type batchServiceImpl struct {
	judgementService JudgementService
	concurrency      int
}

func (b batchServiceImpl) EvaluateAll(ctx context.Context, submissions []view.Submission, cfg view.BackendConfig) []view.SubmissionOutcome {
	outcomes := make([]view.SubmissionOutcome, len(submissions))

	var g errgroup.Group
	g.SetLimit(b.workerCount(len(submissions)))

	for i := range submissions {
		outcomes[i].Submission = submissions[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i].Err = cancelled(passAnalysis, ctx.Err())
				return nil
			}
			// both passes for one file stay in this goroutine
			res, err := b.judgementService.EvaluateSubmission(ctx, submissions[i], cfg)
			if err != nil {
				log.Debugf("grading %s failed: %v", submissions[i].Path, err)
			}
			outcomes[i].Result = res
			outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (b batchServiceImpl) workerCount(n int) int {
	limit := b.concurrency
	if limit <= 0 {
		limit = min(runtime.NumCPU(), maxDefaultConcurrency)
	}
	return max(1, min(limit, n))
}
