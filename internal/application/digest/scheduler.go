package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rfp-bot/pkg/logger"
)

// Scheduler 基于 cron 表达式的每日调度，时区由 location 决定
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler 解析并注册两个任务；表达式为标准 5 段格式
func NewScheduler(ctx context.Context, jobs *Jobs, loc *time.Location, funFactSpec, techPulseSpec string) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	log := cronLogger{ctx: ctx}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	s := &Scheduler{cron: c, ctx: ctx}
	if err := s.add(funFactSpec, JobFunFact, jobs.ScheduledFunFact); err != nil {
		return nil, err
	}
	if err := s.add(techPulseSpec, JobTechPulse, jobs.ScheduledTechPulse); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(spec, name string, run func(context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() { run(s.ctx) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	logger.Info(s.ctx, "job scheduled", "job", name, "spec", spec, "entry", int(id))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next 每个任务的下一次触发时间
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// cronLogger 把 cron 内部日志接到 slog
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error(l.ctx, "cron: "+msg, err, keysAndValues...)
}
