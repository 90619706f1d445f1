// Package orchestrator composes one import cycle: authenticate, bridge,
// fetch, deliver, optionally clear. Each cycle produces exactly one outcome;
// the scheduler decides what happens next.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/auth"
	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/extract"
	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/list"
	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/session"
)

// ErrCycleInProgress means a cycle was requested while one was still
// running. Cycles never overlap; the caller skips this tick.
var ErrCycleInProgress = errors.New("import cycle already in progress")

// Orchestrator runs import cycles. Safe for concurrent RunCycle calls; only
// one proceeds at a time.
type Orchestrator struct {
	config     *common.Config
	store      interfaces.SessionStorage
	sink       interfaces.DeliverySink
	navFactory interfaces.NavigatorFactory
	logger     arbor.ILogger

	mu sync.Mutex
}

// New builds an orchestrator from its collaborators.
func New(config *common.Config, store interfaces.SessionStorage, sink interfaces.DeliverySink, navFactory interfaces.NavigatorFactory, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		config:     config,
		store:      store,
		sink:       sink,
		navFactory: navFactory,
		logger:     logger,
	}
}

// RunCycle executes one full import. The returned outcome is always non-nil
// unless the single-flight guard rejected the call.
func (o *Orchestrator) RunCycle(ctx context.Context) (*models.CycleOutcome, error) {
	if !o.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer o.mu.Unlock()

	cycleID := uuid.New().String()
	logger := o.logger.WithCorrelationId(cycleID)
	started := time.Now()
	logger.Info().Str("region", o.config.Amazon.Region).Msg("Import cycle started")

	outcome := o.runCycle(ctx, cycleID, logger)

	logger.Info().
		Str("status", string(outcome.Status)).
		Str("reason", string(outcome.Reason)).
		Int("items", len(outcome.Items)).
		Str("elapsed", time.Since(started).Round(time.Millisecond).String()).
		Msg("Import cycle finished")
	return outcome, nil
}

func (o *Orchestrator) runCycle(ctx context.Context, cycleID string, logger arbor.ILogger) *models.CycleOutcome {
	outcome := &models.CycleOutcome{CycleID: cycleID}

	// A persisted session skips the whole login dance when it still holds.
	if cookies, ok := o.storedCookies(ctx, logger); ok {
		result, client, err := o.fetchWith(ctx, cookies, logger)
		switch {
		case err == nil:
			o.finish(ctx, outcome, result, client, cookies, logger)
			return outcome
		case errors.Is(err, extract.ErrSessionRejected):
			logger.Info().Msg("Stored session rejected, performing full login")
			if delErr := o.store.DeleteSession(ctx, o.sessionID()); delErr != nil {
				logger.Warn().Err(delErr).Msg("Failed to drop stale session")
			}
		default:
			classifyFetchError(outcome, err)
			return outcome
		}
	}

	cookies, err := o.login(ctx, logger)
	if err != nil {
		outcome.Status = models.CycleAuthFailed
		outcome.Reason = auth.ReasonOf(err)
		logger.Error().Err(err).Msg("Authentication failed")
		return outcome
	}

	result, client, err := o.fetchWith(ctx, cookies, logger)
	if err != nil {
		classifyFetchError(outcome, err)
		logger.Error().Err(err).Msg("Shopping list fetch failed")
		return outcome
	}

	o.finish(ctx, outcome, result, client, cookies, logger)
	return outcome
}

// login runs the authentication machine on a fresh navigator and returns
// the session cookies. The navigator is released on every path; a browser
// engine held across cycles would leak.
func (o *Orchestrator) login(ctx context.Context, logger arbor.ILogger) ([]models.SessionCookie, error) {
	nav, err := o.navFactory(ctx)
	if err != nil {
		return nil, &auth.Error{Reason: models.ReasonNetworkError, Err: fmt.Errorf("failed to start navigation engine: %w", err)}
	}
	defer nav.Close()

	creds := &auth.Credentials{
		Email:    o.config.Amazon.Email,
		Password: o.config.Amazon.Password,
		MFASeed:  o.config.Amazon.MFASeed,
	}
	machine := auth.NewMachine(nav, creds, o.config.Amazon.SiteRoot(), logger)
	if err := machine.Run(ctx); err != nil {
		return nil, err
	}

	cookies, err := nav.Cookies(ctx)
	if err != nil {
		return nil, &auth.Error{Reason: models.ReasonNetworkError, Err: fmt.Errorf("failed to export session cookies: %w", err)}
	}
	return cookies, nil
}

// fetchWith bridges the cookies into a plain HTTP client and reads the
// list. The list client is returned alongside the result so the clear step
// reuses the same bridged session.
func (o *Orchestrator) fetchWith(ctx context.Context, cookies []models.SessionCookie, logger arbor.ILogger) (*extract.Result, *list.Client, error) {
	bridged, err := session.NewBridgedClient(cookies, session.BridgeOptions{
		SiteRoot:  o.config.Amazon.SiteRoot(),
		UserAgent: o.config.Engine.UserAgent,
		Timeout:   o.config.Engine.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	client := list.NewClient(bridged, extract.NewChain(o.config.Amazon.SiteRoot(), logger), o.config.Import.DeleteDelay, logger)
	result, err := client.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result, client, nil
}

// finish delivers and optionally clears, then persists the session for the
// next cycle. Delivery and clearing problems never demote a successful
// fetch.
func (o *Orchestrator) finish(ctx context.Context, outcome *models.CycleOutcome, result *extract.Result, client *list.Client, cookies []models.SessionCookie, logger arbor.ILogger) {
	outcome.Status = models.CycleSuccess
	outcome.Items = result.Items
	logger.Info().
		Int("items", len(result.Items)).
		Str("strategy", result.Strategy).
		Msg("Shopping list imported")

	if o.config.Import.Debug {
		for _, item := range result.Items {
			logger.Debug().Str("id", item.ID).Str("value", item.Value).Msg("List item")
		}
	}

	status, err := o.sink.Deliver(ctx, result.Items)
	if err != nil {
		logger.Error().Err(err).Msg("Webhook delivery failed")
	}
	outcome.DeliveryStatus = status

	if o.config.Import.ClearAfterImport {
		cleared := client.Clear(ctx, result.Items)
		outcome.Clear = &cleared
	}

	state := &models.SessionState{
		ID:       o.sessionID(),
		SiteRoot: o.config.Amazon.SiteRoot(),
		Cookies:  cookies,
	}
	if err := o.store.SaveSession(ctx, state); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist session")
	}
}

// storedCookies loads the persisted session for this site, if any.
func (o *Orchestrator) storedCookies(ctx context.Context, logger arbor.ILogger) ([]models.SessionCookie, bool) {
	state, err := o.store.GetSession(ctx, o.sessionID())
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			logger.Warn().Err(err).Msg("Failed to load stored session")
		}
		return nil, false
	}
	if len(state.Cookies) == 0 {
		return nil, false
	}
	logger.Debug().
		Int("cookies", len(state.Cookies)).
		Str("updated_at", state.UpdatedAt.Format(time.RFC3339)).
		Msg("Trying stored session")
	return state.Cookies, true
}

func (o *Orchestrator) sessionID() string {
	return "amazon:" + o.config.Amazon.Region
}

func classifyFetchError(outcome *models.CycleOutcome, err error) {
	var statusErr *list.StatusError
	switch {
	case errors.Is(err, extract.ErrSessionRejected):
		outcome.Status = models.CycleParseFailed
		outcome.Reason = models.ReasonSessionRejected
	case errors.Is(err, extract.ErrNoStrategyMatched):
		outcome.Status = models.CycleParseFailed
		outcome.Reason = models.ReasonNoStrategyMatched
	case errors.As(err, &statusErr):
		outcome.Status = models.CycleFetchFailed
		outcome.Reason = models.ReasonUnexpectedStatus
	default:
		outcome.Status = models.CycleFetchFailed
		outcome.Reason = models.ReasonNetworkError
	}
}
