// Package task implements periodic (Delay) and cron-scheduled command
// injection into the console write queue, with three cron execution
// modes (line, random, all).
package task

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Mode selects a Cron task's execution mode.
type Mode int

const (
	ModeLine Mode = iota
	ModeRandom
	ModeAll
)

// ParseMode parses the config string into a Mode, defaulting to ModeLine
// on anything unrecognised.
func ParseMode(s string) Mode {
	switch s {
	case "random":
		return ModeRandom
	case "all":
		return ModeAll
	default:
		return ModeLine
	}
}

// cronParser accepts the standard 5 fields plus an optional leading
// seconds field, so an every-second schedule ("* * * * * *") parses.
var cronParser = cronlib.NewParser(
	cronlib.SecondOptional | cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Spec describes one configured task. Exactly one of the Delay or
// Cron field groups is meaningful, selected by Kind.
type Spec struct {
	Kind string // "delay" or "cron"

	Commands []string

	// Delay task fields.
	Delay time.Duration

	// Cron task fields.
	CronExpr string
	Mode     Mode
	Timezone *time.Location // defaults to time.Local
}

// AllCommands returns the full, deduplicated set of command strings
// across every spec, for registration with the Supervisor's
// RegisterTaskCommands — the full set of commands across all tasks is
// registered with the Supervisor at startup.
func AllCommands(specs []Spec) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range specs {
		for _, c := range s.Commands {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}

// Runner drives one Spec, emitting commands onto an output channel
// (typically econ.Supervisor.Commands()) until its context is cancelled.
type Runner struct {
	spec   Spec
	out    chan<- string
	logger *slog.Logger

	// lineIndex is the persistent, atomically-incremented cursor for
	// ModeLine cron tasks, guarded with an atomic counter rather than a
	// mutex.
	lineIndex atomic.Uint64
}

// NewRunner constructs a Runner for spec, sending to out.
func NewRunner(spec Spec, out chan<- string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{spec: spec, out: out, logger: logger.With("component", "task")}
}

// Run blocks, driving the task until ctx is cancelled. Callers run one
// Runner per goroutine, one per scheduled job.
func (r *Runner) Run(ctx context.Context) error {
	switch r.spec.Kind {
	case "cron":
		return r.runCron(ctx)
	default:
		return r.runDelay(ctx)
	}
}

// runDelay emits every configured command in order, then sleeps, then
// repeats, forever.
func (r *Runner) runDelay(ctx context.Context) error {
	for {
		for _, cmd := range r.spec.Commands {
			if !r.send(ctx, cmd) {
				return ctx.Err()
			}
		}
		if !r.sleep(ctx, r.spec.Delay) {
			return ctx.Err()
		}
	}
}

// runCron drives a cron-scheduled task through its execution mode.
func (r *Runner) runCron(ctx context.Context) error {
	schedule, err := cronParser.Parse(r.spec.CronExpr)
	if err != nil {
		return fmt.Errorf("task: invalid cron expression %q: %w", r.spec.CronExpr, err)
	}
	tz := r.spec.Timezone
	if tz == nil {
		tz = time.Local
	}

	for {
		now := time.Now().In(tz)
		next := schedule.Next(now)
		if !r.sleep(ctx, next.Sub(now)) {
			return ctx.Err()
		}
		r.fire(ctx)
	}
}

func (r *Runner) fire(ctx context.Context) {
	switch r.spec.Mode {
	case ModeRandom:
		r.fireRandom(ctx)
	case ModeAll:
		r.fireAll(ctx)
	default:
		r.fireLine(ctx)
	}
}

// fireLine atomically fetches and increments a persistent index, then
// emits commands[index mod len].
func (r *Runner) fireLine(ctx context.Context) {
	if len(r.spec.Commands) == 0 {
		r.logger.Warn("cron task fired with no commands configured")
		return
	}
	idx := r.lineIndex.Add(1) - 1
	cmd := r.spec.Commands[int(idx)%len(r.spec.Commands)]
	r.send(ctx, cmd)
}

// fireRandom picks a command uniformly at random, logging a warning if
// the command set is empty.
func (r *Runner) fireRandom(ctx context.Context) {
	if len(r.spec.Commands) == 0 {
		r.logger.Warn("cron task fired with no commands configured")
		return
	}
	cmd := r.spec.Commands[rand.Intn(len(r.spec.Commands))]
	r.send(ctx, cmd)
}

// fireAll emits every command concurrently; delivery order is not
// guaranteed.
func (r *Runner) fireAll(ctx context.Context) {
	for _, cmd := range r.spec.Commands {
		go r.send(ctx, cmd)
	}
}

// send delivers cmd to the output channel, returning false if ctx was
// cancelled first; this is a suspension point since the channel may be
// full.
func (r *Runner) send(ctx context.Context, cmd string) bool {
	select {
	case r.out <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// sleep blocks for d or until ctx is cancelled, returning false in the
// latter case. Long sleeps are race-cancelled against ctx at their
// natural yield points rather than run to completion.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
