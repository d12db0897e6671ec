package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockingSendCanceled(t *testing.T) {
	ch := make(chan int) // unbuffered, nobody reads

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := blockingSend(ctx, ch, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlockingRecvCanceled(t *testing.T) {
	ch := make(chan int)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := blockingRecv(ctx, ch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceToSink(t *testing.T) {
	src := NewSourceNode[int]("SRC")
	n := 0
	src.StepFunc(func() (int, error) {
		n++
		return n, nil
	})

	got := make(chan int, 3)
	sink := NewSinkNode("SINK", src.Stream())
	sink.StepFunc(func(v int) error {
		got <- v
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src.Run(ctx)
	sink.Run(ctx)

	assert.Equal(t, 1, <-got)
	assert.Equal(t, 2, <-got)
	assert.Equal(t, 3, <-got)
}

func TestSourceStopsOnCancel(t *testing.T) {
	src := NewSourceNode[int]("SRC")
	src.StepFunc(func() (int, error) {
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	src.Run(ctx)
	cancel()

	assert.ErrorIs(t, <-src.Err(), context.Canceled)
}
