package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/orchestrator"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	outcome *models.CycleOutcome
	err     error
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*models.CycleOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.outcome, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTickDropsWhenCycleInProgress(t *testing.T) {
	runner := &fakeRunner{err: orchestrator.ErrCycleInProgress}
	service := NewService(runner, time.Minute, common.GetLogger())

	service.tick(context.Background())
	assert.Equal(t, 1, runner.callCount(), "a busy cycle is dropped, not retried within the tick")

	runner.mu.Lock()
	runner.err = nil
	runner.outcome = &models.CycleOutcome{Status: models.CycleSuccess}
	runner.mu.Unlock()

	service.tick(context.Background())
	assert.Equal(t, 2, runner.callCount(), "the next tick runs normally once the cycle is free")
}

func TestTickLogsFailedOutcome(t *testing.T) {
	runner := &fakeRunner{outcome: &models.CycleOutcome{
		Status: models.CycleAuthFailed,
		Reason: models.ReasonBadCredentials,
	}}
	service := NewService(runner, time.Minute, common.GetLogger())

	service.tick(context.Background())
	assert.Equal(t, 1, runner.callCount())
}

func TestStartRunsImmediateCycle(t *testing.T) {
	runner := &fakeRunner{outcome: &models.CycleOutcome{Status: models.CycleSuccess}}
	service := NewService(runner, time.Hour, common.GetLogger())

	assert.NoError(t, service.Start(context.Background()))
	defer service.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for runner.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, runner.callCount(), 1, "the first cycle fires on start, not after a full interval")

	assert.Error(t, service.Start(context.Background()), "a running scheduler refuses a second start")
}
