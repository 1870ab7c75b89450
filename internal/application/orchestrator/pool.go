package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/dagocrew/pkg/adapters/metrics"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kickoffer is anything that runs a crew once for a set of inputs
type Kickoffer interface {
	Kickoff(ctx context.Context, inputs map[string]string) (*domain.CrewOutput, error)
}

// Pool runs independent kickoffs of a crew on a bounded number of workers
type Pool struct {
	size    int
	metrics ports.MetricsCollector
	logger  *zap.Logger

	mu   sync.Mutex
	busy int
}

// NewPool creates a kickoff pool with size workers
func NewPool(size int, collector ports.MetricsCollector, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		size:    size,
		metrics: collector,
		logger:  logger.With(zap.String("component", "pool")),
	}
}

// Size returns the number of workers
func (p *Pool) Size() int { return p.size }

// KickoffForEach runs crew once per input set. Outputs are returned in the
// order of inputs. The first failure cancels the runs still in progress,
// which fail at their next task boundary, and is returned.
func (p *Pool) KickoffForEach(ctx context.Context, crew Kickoffer, inputs []map[string]string) ([]*domain.CrewOutput, error) {
	outputs := make([]*domain.CrewOutput, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	p.logger.Info("starting batch kickoff",
		zap.Int("runs", len(inputs)),
		zap.Int("workers", p.size))

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p.setBusy(1)
			defer p.setBusy(-1)

			out, err := crew.Kickoff(gctx, in)
			if err != nil {
				p.logger.Warn("batch run failed", zap.Int("index", i), zap.Error(err))
				return fmt.Errorf("run %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Info("batch kickoff completed", zap.Int("runs", len(inputs)))
	return outputs, nil
}

// setBusy moves the busy worker count and reports the pool status
func (p *Pool) setBusy(delta int) {
	p.mu.Lock()
	p.busy += delta
	busy := p.busy
	p.mu.Unlock()

	p.metrics.RecordWorkerPoolStatus(p.size-busy, busy)
}
