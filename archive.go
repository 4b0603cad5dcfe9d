package chronicle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// Archiver persists events durably outside the hot log. It is a
	// write-behind mirror: the log remains the sole source of truth and
	// projections never read from the archive
	Archiver interface {
		Archive(ctx context.Context, evs []*Event) error
		Events(ctx context.Context, id ID) ([]*Event, error)
		Close() error
	}

	// ArchiveWorker drains a hub subscription into an Archiver using a
	// pool of workers. Write failures are logged and dropped; the hot
	// log is unaffected
	ArchiveWorker struct {
		archiver Archiver
		sub      *Subscription
		log      *zap.Logger
		ctx      context.Context
		cancel   context.CancelFunc
		config   ArchiveConfig
		wg       sync.WaitGroup
	}
)

// NewArchiveWorker subscribes to the hub and starts the worker pool
func NewArchiveWorker(
	archiver Archiver, hub *Hub, logger *zap.Logger, cfg ArchiveConfig,
) *ArchiveWorker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &ArchiveWorker{
		archiver: archiver,
		sub:      hub.Subscribe(cfg.MaxQueueSize),
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
	}

	for i := 0; i < max(1, cfg.WorkerCount); i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	return w
}

func (w *ArchiveWorker) worker(id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.sub.Receive():
			if !ok {
				return
			}
			w.save(id, ev)
		}
	}
}

func (w *ArchiveWorker) save(workerID int, ev *Event) {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := w.archiver.Archive(ctx, []*Event{ev})
	duration := time.Since(start)

	if err != nil {
		w.log.Error("failed to archive event",
			zap.Int("worker_id", workerID),
			zap.String("entity_id", string(ev.EntityID)),
			zap.Int64("sequence", ev.Sequence),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	w.log.Debug("event archived",
		zap.Int("worker_id", workerID),
		zap.String("entity_id", string(ev.EntityID)),
		zap.Int64("sequence", ev.Sequence),
		zap.Duration("duration", duration),
	)
}

// Dropped reports how many events were lost because the archive queue
// was full
func (w *ArchiveWorker) Dropped() int64 {
	return w.sub.Dropped()
}

// Stop unsubscribes from the hub, drains in-flight saves and waits for
// the workers to exit
func (w *ArchiveWorker) Stop() {
	w.sub.Close()
	w.wg.Wait()
	w.cancel()
}
