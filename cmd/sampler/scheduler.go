package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// startScheduler runs job once immediately, then once per interval until ctx
// is cancelled. The first scheduled run comes one full interval after the
// immediate one. A run that is still going when the next one is due causes
// that next run to be skipped. On return no run is in flight.
func startScheduler(ctx context.Context, logger *slog.Logger, interval time.Duration, job func(context.Context)) {
	cronLog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	c.Schedule(fixedDelay{interval: interval}, cron.FuncJob(func() {
		job(ctx)
	}))

	job(ctx)
	c.Start()
	logger.Info("sampler started", slog.Duration("interval", interval))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("sampler stopped")
}

// fixedDelay is a cron.Schedule that fires exactly interval after the
// previous activation. Unlike cron.Every it keeps sub-second precision and
// is not aligned to wall-clock seconds.
type fixedDelay struct {
	interval time.Duration
}

func (s fixedDelay) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

// cronLogger adapts slog to cron.Logger. Cron's chatty info messages go to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
