// -----------------------------------------------------------------------
// Worker pool - per-kind polling workers dispatching queue messages to
// registered processors
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// ProgressFunc reports a worker's progress checkpoint (0-100). Workers only
// report checkpoints; terminal status is written by the event bridge.
type ProgressFunc func(value int)

// Processor executes one job kind. Process returns the job's output map on
// success; a non-nil error counts as a failed attempt and may be retried.
type Processor interface {
	Kind() models.JobKind
	Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error)
}

// Pool runs a fixed set of polling workers per job kind. Each worker loops on
// its kind's queue; concurrency per kind comes from configuration.
type Pool struct {
	registry   interfaces.QueueRegistry
	processors map[models.JobKind]Processor
	config     *common.Config
	logger     arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates an empty pool. Processors are registered before Start.
func NewPool(registry interfaces.QueueRegistry, config *common.Config, logger arbor.ILogger) *Pool {
	return &Pool{
		registry:   registry,
		processors: make(map[models.JobKind]Processor),
		config:     config,
		logger:     logger,
	}
}

// Register adds a processor for its kind. Registering two processors for the
// same kind is a programming error.
func (p *Pool) Register(proc Processor) error {
	kind := proc.Kind()
	if _, exists := p.processors[kind]; exists {
		return fmt.Errorf("processor already registered for kind %s", kind)
	}
	if _, ok := p.registry.Queue(kind); !ok {
		return fmt.Errorf("no queue registered for kind %s", kind)
	}
	p.processors[kind] = proc
	return nil
}

// Start launches the workers. Start is non-blocking; Stop waits for in-flight
// jobs to finish.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for kind, proc := range p.processors {
		queue, _ := p.registry.Queue(kind)
		concurrency := p.concurrency(kind)
		for i := 0; i < concurrency; i++ {
			p.wg.Add(1)
			go p.runWorker(ctx, queue, proc, i)
		}
		p.logger.Info().
			Str("kind", string(kind)).
			Int("workers", concurrency).
			Msg("Worker pool started for kind")
	}
}

// Stop cancels all workers and waits for them to drain.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

func (p *Pool) concurrency(kind models.JobKind) int {
	w := p.config.Workers
	var n int
	switch kind {
	case models.KindCharacterGeneration:
		n = w.Character
	case models.KindObjectGeneration:
		n = w.Object
	case models.KindSceneGeneration:
		n = w.Scene
	case models.KindFrameGeneration:
		n = w.Frame
	case models.KindVideoGeneration:
		n = w.Video
	case models.KindVideoStitching:
		n = w.Stitch
	case models.KindScriptGeneration:
		n = w.Script
	case models.KindImageEditing:
		n = w.ImageEdit
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// runWorker is the poll loop for one worker goroutine. Workers are staggered
// so same-kind workers do not hammer the store in lockstep.
func (p *Pool) runWorker(ctx context.Context, queue interfaces.Queue, proc Processor, index int) {
	defer p.wg.Done()

	stagger := time.Duration(index) * 100 * time.Millisecond
	select {
	case <-time.After(stagger):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(p.config.QueuePollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, queue, proc)
		}
	}
}

// poll drains the queue until it is empty, then returns to the ticker.
func (p *Pool) poll(ctx context.Context, queue interfaces.Queue, proc Processor) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := queue.Receive(ctx)
		if err == models.ErrNoMessage {
			return
		}
		if err != nil {
			p.logger.Error().Err(err).
				Str("kind", string(queue.Kind())).
				Msg("Failed to receive from queue")
			return
		}

		p.process(ctx, queue, proc, msg)
	}
}

func (p *Pool) process(ctx context.Context, queue interfaces.Queue, proc Processor, msg *models.QueueMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("job_id", msg.JobID).
				Str("kind", string(msg.Kind)).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Worker panicked processing job")
			queue.Fail(msg.JobID, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	started := time.Now()
	report := func(value int) {
		queue.Progress(msg.JobID, value)
	}

	output, err := proc.Process(ctx, msg, report)
	if err != nil {
		queue.Fail(msg.JobID, err.Error())
		return
	}

	p.logger.Debug().
		Str("job_id", msg.JobID).
		Str("kind", string(msg.Kind)).
		Str("duration", time.Since(started).String()).
		Msg("Job processed")

	queue.Complete(msg.JobID, output)
}
