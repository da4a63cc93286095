package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/auralabs/aura-backend/internal/platform/logger"
)

// Processor is one end-to-end run of the document pipeline.
type Processor interface {
	Process(ctx context.Context, documentID uuid.UUID) error
}

// Worker claims document ids off the queue and runs the processor.
// Failures are terminal for the claimed run: the processor has already
// moved the document to FAILED, so the worker only logs and moves on.
type Worker struct {
	log         *logger.Logger
	queue       Queue
	processor   Processor
	concurrency int
	group       *errgroup.Group
}

func NewWorker(queue Queue, processor Processor, concurrency int, baseLog *logger.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		log:         baseLog.With("component", "JobWorker"),
		queue:       queue,
		processor:   processor,
		concurrency: concurrency,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting processing worker pool", "concurrency", w.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	w.group = g
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.runLoop(gctx, workerID)
			return nil
		})
	}
}

// Wait blocks until every worker loop has exited.
func (w *Worker) Wait() {
	if w.group != nil {
		_ = w.group.Wait()
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		default:
		}

		id, err := w.queue.Dequeue(ctx)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		if err != nil {
			w.log.Warn("Dequeue failed", "worker_id", workerID, "error", err)
			continue
		}

		w.runOne(ctx, workerID, id)
	}
}

func (w *Worker) runOne(ctx context.Context, workerID int, documentID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Processor panic",
				"worker_id", workerID,
				"document_id", documentID,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if err := w.processor.Process(ctx, documentID); err != nil {
		// Process already transitioned the document; this is for
		// operational visibility only.
		w.log.Error("Processing run failed",
			"worker_id", workerID,
			"document_id", documentID,
			"error", err,
		)
	}
}
