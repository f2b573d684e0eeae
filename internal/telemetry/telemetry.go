// Package telemetry asynchronously publishes beacon.Status snapshots after
// each completed transmission, off the core's hot path. The worker pool
// shape is grounded in the teacher module's pkg/gnssgo/rtcm worker pool: a
// context-cancellable goroutine draining a buffered job channel.
package telemetry

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bramburn/t018beacon/pkg/beacon"
)

// Publisher drains a small buffered channel of status snapshots and logs
// each one, tagging it with a correlation id so a downstream log
// aggregator can group the fields of one event.
type Publisher struct {
	log    *logrus.Logger
	jobs   chan beacon.Status
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPublisher constructs a Publisher with the given job queue depth.
// Publish drops a status snapshot (logging a warning) rather than blocking
// the caller when the queue is full.
func NewPublisher(log *logrus.Logger, queueDepth int) *Publisher {
	return &Publisher{log: log, jobs: make(chan beacon.Status, queueDepth)}
}

// Start launches the single background worker. Call Stop to terminate it;
// snapshots still queued when Stop is called are not guaranteed to be
// logged.
func (p *Publisher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.worker(ctx)
}

func (p *Publisher) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-p.jobs:
			p.log.WithFields(logrus.Fields{
				"event_id":     uuid.New().String(),
				"transmitting": st.Transmitting,
				"phase":        st.Phase,
				"tx_count":     st.TxCount,
				"last_tx_ms":   st.LastTxMs,
				"last_hex_id":  st.LastHexID,
			}).Info("beacon status")
		}
	}
}

// Publish enqueues a status snapshot for asynchronous logging. Never
// blocks: a full queue drops the newest snapshot and logs a warning.
func (p *Publisher) Publish(st beacon.Status) {
	select {
	case p.jobs <- st:
	default:
		p.log.Warn("telemetry: status snapshot dropped, queue full")
	}
}

// Stop cancels the worker and waits for it to exit.
func (p *Publisher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
