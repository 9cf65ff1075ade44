// Package worker runs background maintenance for the browser session.
package worker

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/robfig/cron/v3"
)

const defaultCheckTimeout = 2 * time.Minute

// Healer relaunches the browser when it is unhealthy.
type Healer interface {
	Heal(ctx context.Context) (bool, error)
}

// Keeper periodically checks the browser and relaunches it when it died
// between searches.
type Keeper struct {
	healer   Healer
	logger   logSDK.Logger
	spec     string
	schedule cron.Schedule
	timeout  time.Duration
	cron     *cron.Cron
}

// NewKeeper validates spec, a standard cron expression or descriptor such as "@every 5m".
func NewKeeper(healer Healer, spec string, logger logSDK.Logger) (*Keeper, error) {
	if healer == nil {
		return nil, errors.New("healer is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "parse keeper schedule %q", spec)
	}

	return &Keeper{
		healer:   healer,
		logger:   logger,
		spec:     spec,
		schedule: schedule,
		timeout:  defaultCheckTimeout,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// Run schedules the checks and blocks until ctx is done.
// It waits for a running check before returning.
func (k *Keeper) Run(ctx context.Context) error {
	k.cron.Schedule(k.schedule, cron.FuncJob(func() {
		k.Check(ctx)
	}))

	k.logger.Info("browser keeper started", zap.String("schedule", k.spec))
	k.cron.Start()

	<-ctx.Done()
	<-k.cron.Stop().Done()
	k.logger.Info("browser keeper stopped")
	return nil
}

// Check runs one health check and reports whether the browser was relaunched.
func (k *Keeper) Check(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	healed, err := k.healer.Heal(checkCtx)
	switch {
	case err != nil:
		k.logger.Error("heal browser", zap.Error(err))
	case healed:
		k.logger.Warn("browser was unhealthy and has been relaunched")
	default:
		k.logger.Debug("browser healthy")
	}
	return healed && err == nil
}
