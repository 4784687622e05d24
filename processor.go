package iso8583

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Processor parses raw messages concurrently with a Factory.
type Processor struct {
	factory      *Factory
	concurrency  int         // Max number of goroutines for processing
	errorHandler func(error) // Callback for handling errors
	metrics      *Metrics
}

// ProcessorOption defines a function signature for configuring a Processor.
type ProcessorOption func(*Processor)

// WithConcurrency sets the maximum number of concurrent goroutines for the processor.
func WithConcurrency(n int) ProcessorOption {
	return func(p *Processor) {
		p.concurrency = n
	}
}

// WithErrorHandler sets a custom error handler for errors encountered during
// batch or stream processing.
func WithErrorHandler(handler func(error)) ProcessorOption {
	return func(p *Processor) {
		p.errorHandler = handler
	}
}

// WithMetrics records parse outcomes in m.
func WithMetrics(m *Metrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor creates a new Processor with the given factory and options.
func NewProcessor(factory *Factory, opts ...ProcessorOption) *Processor {
	p := &Processor{
		factory:     factory,
		concurrency: 4,
		errorHandler: func(err error) {
			factory.log.Warn().Err(err).Msg("processor error")
		},
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}

	return p
}

// Process parses a single raw message.
func (p *Processor) Process(data []byte) (*Message, error) {
	msg, err := p.factory.ParseMessage(data, 0)
	p.metrics.observe(len(data), msg, err)
	return msg, err
}

// ProcessBatch parses every message of the batch. Results keep the batch
// order; the first failure cancels the rest and is returned without results.
func (p *Processor) ProcessBatch(ctx context.Context, batch [][]byte) ([]*Message, error) {
	results := make([]*Message, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, data := range batch {
		i, data := i, data
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msg, err := p.Process(data)
			if err != nil {
				err = errors.Wrapf(err, "message %d", i)
				if p.errorHandler != nil {
					p.errorHandler(err)
				}
				return err
			}
			results[i] = msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, msg := range results {
			if msg != nil {
				msg.Release()
			}
		}
		return nil, err
	}
	return results, nil
}

// ProcessStream parses messages from input and sends them to output until
// input is closed or ctx is done. Failed messages go to the error handler and
// do not stop the stream.
func (p *Processor) ProcessStream(ctx context.Context, input <-chan []byte, output chan<- *Message) error {
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()

		case data, ok := <-input:
			if !ok {
				return g.Wait()
			}

			g.Go(func() error {
				msg, err := p.Process(data)
				if err != nil {
					if p.errorHandler != nil {
						p.errorHandler(err)
					}
					return nil
				}

				select {
				case output <- msg:
				case <-ctx.Done():
					msg.Release()
				}
				return nil
			})
		}
	}
}
