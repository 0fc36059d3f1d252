/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-crawldispatch/log/logtest"
)

func TestService_Start(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	var runningCounter atomic.Int32
	unit := newMockUnit("crawler", &runningCounter, false)
	service := New(logRecorder, unit)

	startErr := make(chan error, 1)
	go func() {
		startErr <- service.Start()
	}()
	require.NoError(t, waitTrue(func() bool { return runningCounter.Load() == 1 }, time.Second*3))
	require.Equal(t, int32(1), unit.mustRegisterMetricsCalled.Load())
	require.Equal(t, int32(1), unit.startCalled.Load())

	service.Signals <- os.Interrupt

	require.NoError(t, <-startErr)
	require.Equal(t, int32(0), runningCounter.Load())
	require.Equal(t, int32(1), unit.unregisterMetricsCalled.Load())
	require.Equal(t, int32(1), unit.stopCalled.Load())
	require.Equal(t, int32(1), unit.stopGracefullyCalled.Load())

	_, found := logRecorder.FindEntry("service got signal")
	require.True(t, found)
}

func TestService_StartContext(t *testing.T) {
	ctx, ctxCancel := context.WithCancel(context.Background())
	defer ctxCancel()

	logRecorder := logtest.NewRecorder()
	var runningCounter atomic.Int32
	unit := newMockUnit("crawler", &runningCounter, false)
	service := New(logRecorder, unit)

	startErr := make(chan error, 1)
	go func() {
		startErr <- service.StartContext(ctx)
	}()
	require.NoError(t, waitTrue(func() bool { return runningCounter.Load() == 1 }, time.Second*3))

	ctxCancel()

	require.NoError(t, <-startErr)
	require.Equal(t, int32(0), runningCounter.Load())
	require.Equal(t, int32(1), unit.stopGracefullyCalled.Load())
}

func TestService_FatalError(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	unitErr := errors.New("crawl run failed")
	unit := &failingUnit{err: unitErr}
	service := New(logRecorder, unit)

	err := service.Start()
	require.ErrorIs(t, err, unitErr)
	require.Equal(t, int32(0), unit.stopCalled.Load())

	entry, found := logRecorder.FindEntry("service fatal error")
	require.True(t, found)
	_, found = entry.FindField("error")
	require.True(t, found)
}
