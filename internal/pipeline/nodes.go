// Package pipeline provides the channel-based node graph the capture
// side is built from, plus the single-slot latest-frame handoff to the
// display loop. Only the node kinds the capture path wires exist: a
// source pushing into a stream and a sink draining one.
package pipeline

import (
	"context"

	"github.com/pkg/errors"
)

// Node is one running stage of a Graph. Run starts the node's loop in its
// own goroutine; the first error (including context.Canceled on shutdown)
// is delivered on Err and terminates the loop.
type Node interface {
	Name() string
	Run(context.Context)
	Err() <-chan error
}

// blockingSend delivers v on sendChan, giving up when the context ends.
func blockingSend[T any](ctx context.Context, sendChan chan<- T, v T) error {
	select {
	case <-ctx.Done():
		return context.Canceled

	case sendChan <- v:
		return nil
	}
}

// blockingRecv waits for a value on recvChan, giving up when the context
// ends.
func blockingRecv[T any](ctx context.Context, recvChan <-chan T) (T, error) {
	var v T

	select {
	case <-ctx.Done():
		return v, context.Canceled

	case v = <-recvChan:
		return v, nil
	}
}

type SourceNode[T any] struct {
	name     string
	outChan  chan T
	errChan  chan error
	setup    func() error
	teardown func() error
	step     func() (T, error)
}

var _ Node = &SourceNode[int]{}

func NewSourceNode[T any](name string) *SourceNode[T] {
	return &SourceNode[T]{
		name:    name,
		outChan: make(chan T),
		errChan: make(chan error),
	}
}

func (n *SourceNode[T]) Name() string {
	return n.name
}

func (n *SourceNode[T]) SetupFunc(setup func() error) {
	n.setup = setup
}

func (n *SourceNode[T]) TeardownFunc(teardown func() error) {
	n.teardown = teardown
}

func (n *SourceNode[T]) StepFunc(step func() (T, error)) {
	n.step = step
}

func (n *SourceNode[T]) Run(ctx context.Context) {
	if n.step == nil {
		return
	}

	go n.loop(ctx)
}

func (n *SourceNode[T]) Err() <-chan error {
	return n.errChan
}

func (n *SourceNode[T]) Stream() <-chan T {
	return n.outChan
}

func (n *SourceNode[T]) loop(ctx context.Context) {
	if n.setup != nil {
		err := n.setup()
		if err != nil {
			n.errChan <- errors.Wrap(err, "setup error")
			return
		}
	}

	defer func() {
		if n.teardown != nil {
			err := n.teardown()
			if err != nil {
				n.errChan <- errors.Wrap(err, "teardown error")
			}
		}
	}()

	for {
		v, err := n.step()
		if err != nil {
			n.errChan <- err
			return
		}

		err = blockingSend(ctx, n.outChan, v)
		if err != nil {
			n.errChan <- err
			return
		}
	}
}

type SinkNode[T any] struct {
	name     string
	inChan   <-chan T
	errChan  chan error
	setup    func() error
	teardown func() error
	step     func(T) error
}

var _ Node = &SinkNode[int]{}

func NewSinkNode[T any](name string, inChan <-chan T) *SinkNode[T] {
	return &SinkNode[T]{
		name:    name,
		inChan:  inChan,
		errChan: make(chan error),
	}
}

func (n *SinkNode[T]) Name() string {
	return n.name
}

func (n *SinkNode[T]) SetupFunc(setup func() error) {
	n.setup = setup
}

func (n *SinkNode[T]) TeardownFunc(teardown func() error) {
	n.teardown = teardown
}

func (n *SinkNode[T]) StepFunc(step func(T) error) {
	n.step = step
}

func (n *SinkNode[T]) Run(ctx context.Context) {
	if n.step == nil {
		return
	}

	go n.loop(ctx)
}

func (n *SinkNode[T]) Err() <-chan error {
	return n.errChan
}

func (n *SinkNode[T]) loop(ctx context.Context) {
	if n.setup != nil {
		err := n.setup()
		if err != nil {
			n.errChan <- errors.Wrap(err, "setup error")
			return
		}
	}

	defer func() {
		if n.teardown != nil {
			err := n.teardown()
			if err != nil {
				n.errChan <- errors.Wrap(err, "teardown error")
			}
		}
	}()

	for {
		v, err := blockingRecv(ctx, n.inChan)
		if err != nil {
			n.errChan <- err
			return
		}

		err = n.step(v)
		if err != nil {
			n.errChan <- err
			return
		}
	}
}
