/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type mockMetricsRegisterer struct {
	registered   atomic.Int32
	unregistered atomic.Int32
}

func (m *mockMetricsRegisterer) MustRegisterMetrics() { m.registered.Inc() }

func (m *mockMetricsRegisterer) UnregisterMetrics() { m.unregistered.Inc() }

func TestWorkerUnit_Start_Stop(t *testing.T) {
	t.Run("start, stop no gracefully", func(t *testing.T) {
		started := make(chan struct{})
		var finished atomic.Bool
		worker := WorkerFunc(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			time.Sleep(time.Millisecond * 200)
			finished.Store(true)
			return nil
		})

		unit := NewWorkerUnit(worker)
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		<-started
		require.NoError(t, unit.Stop(false))
		require.False(t, finished.Load())
	})

	t.Run("start, stop gracefully with timeout", func(t *testing.T) {
		longRunningWorker := WorkerFunc(func(ctx context.Context) error {
			time.Sleep(time.Second * 2) // Ignores cancellation.
			return nil
		})
		unit := NewWorkerUnitWithOpts(longRunningWorker, WorkerUnitOpts{GracefulStopTimeout: time.Millisecond * 200})
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		time.Sleep(time.Millisecond * 50)
		require.ErrorIs(t, unit.Stop(true), ErrWorkerUnitStopTimeoutExceeded)
	})

	t.Run("start, stop gracefully without timeout", func(t *testing.T) {
		var answer atomic.Int32
		worker := WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(time.Millisecond * 100)
			answer.Store(42)
			return nil
		})
		unit := NewWorkerUnit(worker)
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		time.Sleep(time.Millisecond * 50)
		require.NoError(t, unit.Stop(true))
		require.Equal(t, int32(42), answer.Load())
		require.Len(t, fatalErr, 0)
	})

	t.Run("worker error is reported as fatal", func(t *testing.T) {
		workerErr := errors.New("crawl run aborted")
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			return workerErr
		}))
		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		require.ErrorIs(t, <-fatalErr, workerErr)
		require.NoError(t, unit.Stop(true))
	})
}

func TestWorkerUnit_Metrics(t *testing.T) {
	registerer := &mockMetricsRegisterer{}
	unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error { return nil }),
		WorkerUnitOpts{MetricsRegisterer: registerer})
	unit.MustRegisterMetrics()
	unit.UnregisterMetrics()
	require.Equal(t, int32(1), registerer.registered.Load())
	require.Equal(t, int32(1), registerer.unregistered.Load())

	NewWorkerUnit(WorkerFunc(func(ctx context.Context) error { return nil })).MustRegisterMetrics()
}
