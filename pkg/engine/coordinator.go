package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/playbook/pkg/lock"
	"github.com/openfroyo/playbook/pkg/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Coordinator runs one playbook invocation at a time: it renders dry runs,
// re-checks the executable and playbook, consults the policy gate, holds the
// advisory lock around execution, and resolves the tool's output to a state.
type Coordinator struct {
	tool           string
	executor       Executor
	locks          lock.Manager
	policy         PolicyChecker
	logger         zerolog.Logger
	metrics        *telemetry.Metrics
	tracer         *telemetry.Tracer
	defaultTimeout time.Duration
	lookPath       func(string) (string, error)
	environ        func() []string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTool sets the playbook runner executable name.
func WithTool(tool string) Option {
	return func(c *Coordinator) { c.tool = tool }
}

// WithExecutor sets the executor used to run the tool.
func WithExecutor(executor Executor) Option {
	return func(c *Coordinator) { c.executor = executor }
}

// WithLockManager sets the lock manager used for exclusive requests.
func WithLockManager(locks lock.Manager) Option {
	return func(c *Coordinator) { c.locks = locks }
}

// WithPolicy sets the policy gate checked before execution.
func WithPolicy(policy PolicyChecker) Option {
	return func(c *Coordinator) { c.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(c *Coordinator) { c.metrics = metrics }
}

// WithTracer sets the tracer.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(c *Coordinator) { c.tracer = tracer }
}

// WithDefaultTimeout sets the wall-clock timeout applied when a request has
// none. Zero means no limit.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) { c.defaultTimeout = timeout }
}

// WithLookPath replaces exec.LookPath for the executable check.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(c *Coordinator) { c.lookPath = lookPath }
}

// WithEnviron replaces os.Environ as the base of the child environment.
func WithEnviron(environ func() []string) Option {
	return func(c *Coordinator) { c.environ = environ }
}

// NewCoordinator creates a coordinator. Without options it runs
// ansible-playbook as a child process and locks with flock.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		tool:     DefaultTool,
		logger:   zerolog.Nop(),
		lookPath: exec.LookPath,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "coordinator").Logger()
	if c.executor == nil {
		c.executor = NewProcessExecutor(c.logger)
	}
	if c.locks == nil {
		c.locks = lock.NewFileManager(c.logger)
	}
	if c.tracer == nil {
		c.tracer = telemetry.NoopTracer()
	}
	return c
}

// Run performs one invocation of req. In ModeNoop it only reports the command
// that would run. Any error returned is an *Error; for errors raised after the
// tool was started, Error.Result holds what was observed.
func (c *Coordinator) Run(ctx context.Context, req *ExecutionRequest, mode Mode) (*Result, error) {
	if req == nil {
		return nil, newInvalidRequestError(errors.New("request is nil"))
	}
	if err := mode.Validate(); err != nil {
		return nil, newInvalidRequestError(err)
	}

	result := &Result{
		RunID:     uuid.New().String(),
		Playbook:  req.Playbook(),
		Mode:      mode,
		Command:   BuildCommand(c.tool, req),
		StartedAt: time.Now(),
	}
	logger := c.logger.With().
		Str("run_id", result.RunID).
		Str("playbook", result.Playbook).
		Logger()

	ctx, span := c.tracer.StartPlaybookSpan(ctx, result.RunID, result.Playbook, string(mode))
	defer span.End()
	span.SetAttributes(telemetry.AttrExclusive.Bool(req.Exclusive()))

	if mode == ModeNoop {
		result.State = Unchanged()
		result.Message = "would run: " + RenderCommand(result.Command)
		logger.Info().Str("command", RenderCommand(result.Command)).Msg("Noop run, playbook not executed")
		telemetry.RecordSuccess(span)
		return result, nil
	}

	err := c.execute(ctx, logger, req, result)
	result.Duration = time.Since(result.StartedAt)
	c.observe(span, logger, result, err)
	if err != nil {
		return nil, c.finishError(err, req, result)
	}
	return result, nil
}

func (c *Coordinator) execute(ctx context.Context, logger zerolog.Logger, req *ExecutionRequest, result *Result) error {
	if _, err := c.lookPath(c.tool); err != nil {
		return newExecutableNotFoundError(c.tool, err)
	}

	info, err := os.Stat(req.Playbook())
	if err != nil {
		return newTargetNotFoundError(req.Playbook(), err)
	}
	if info.IsDir() {
		return newTargetNotFoundError(req.Playbook(), errors.New("path is a directory"))
	}

	if c.policy != nil {
		decision, err := c.policy.CheckRequest(ctx, req, ModeApply)
		if err != nil {
			return &Error{Kind: KindPolicyDenied, Message: "policy evaluation failed", Err: err}
		}
		for _, w := range decision.Warnings {
			logger.Warn().Str("violation", w).Msg("Policy warning")
		}
		if !decision.Allowed {
			return newPolicyDeniedError(req.Playbook(), decision.Denials)
		}
	}

	if req.Exclusive() {
		key := req.Playbook()
		if !c.locks.Acquire(key) {
			c.metrics.RecordLockContention()
			return newLockAcquisitionError(req.Playbook(), lock.Path(key))
		}
		defer c.locks.Release(key)
		result.Locked = true
		logger.Debug().Str("lock", lock.Path(key)).Msg("Holding playbook lock")
	}

	timeout := req.Timeout()
	if timeout == 0 {
		timeout = c.defaultTimeout
	}
	env := BuildEnvironment(c.environ(), req.Environment())

	logger.Debug().
		Str("command", RenderCommand(result.Command)).
		Strs("env_overrides", req.EnvironmentKeys()).
		Dur("timeout", timeout).
		Msg("Executing playbook")

	result.Executed = true
	raw, err := c.executor.Run(ctx, result.Command, env, timeout)
	if err != nil {
		return err
	}
	result.ExitCode = raw.ExitCode
	if req.ShowOutput() {
		result.Output = raw.Text
	}

	stats, err := ParseOutput(raw.Text)
	if err != nil {
		return err
	}
	result.Stats = stats
	result.State = Resolve(*stats)
	result.Message = result.State.Summary()

	if result.State.IsFailed() {
		return newTaskFailureError(result.State.Count)
	}
	if raw.ExitCode != 0 {
		logger.Warn().
			Int("exit_code", raw.ExitCode).
			Str("stats", stats.String()).
			Msg("Playbook runner exited nonzero without failed tasks")
	}
	return nil
}

// finishError normalizes err to an *Error carrying the request context.
func (c *Coordinator) finishError(err error, req *ExecutionRequest, result *Result) error {
	var e *Error
	if !errors.As(err, &e) {
		e = newProcessFailedError("execution failed", "", err)
	}
	if e.Playbook == "" {
		e.Playbook = req.Playbook()
	}
	if !req.ShowOutput() {
		e.Output = ""
	} else if e.Output == "" {
		e.Output = result.Output
	}
	if result.Executed {
		e.Result = result
	}
	return e
}

func (c *Coordinator) observe(span trace.Span, logger zerolog.Logger, result *Result, err error) {
	state := string(result.State.Kind)
	if err != nil && !IsKind(err, KindTaskFailure) {
		state = "error"
	}

	if result.Executed {
		c.metrics.RecordRun(result.Playbook, state, result.Duration)
	}
	if result.Stats != nil {
		c.metrics.RecordTasks(result.Stats.Ok, result.Stats.Changed, result.Stats.Failed, result.Stats.Skipped)
		span.SetAttributes(
			telemetry.AttrChanged.Int(result.Stats.Changed),
			telemetry.AttrFailed.Int(result.Stats.Failed),
		)
	}
	span.SetAttributes(telemetry.AttrState.String(state))

	if err != nil {
		kind := KindOf(err)
		if kind == "" {
			kind = KindProcessFailed
		}
		c.metrics.RecordError(string(kind))
		span.SetAttributes(telemetry.AttrErrorKind.String(string(kind)))
		telemetry.RecordError(span, err)
		c.logFailure(logger, kind, result, err)
		return
	}

	telemetry.RecordSuccess(span)
	event := logger.Info()
	if result.State.IsChanged() {
		event = event.Int("changed", result.State.Count)
	}
	event.
		Str("state", state).
		Dur("duration", result.Duration).
		Msgf("Playbook run finished: %s", result.Message)
}

// logFailure picks the log level per error kind: contention is expected
// under concurrent runs, everything else is an error.
func (c *Coordinator) logFailure(logger zerolog.Logger, kind ErrorKind, result *Result, err error) {
	switch kind {
	case KindLockAcquisitionFailed:
		logger.Warn().Err(err).Msg("Playbook lock is held, not running")
	case KindTaskFailure:
		logger.Error().Err(err).Int("failed", result.State.Count).Dur("duration", result.Duration).Msg("Playbook reported failed tasks")
	case KindTimeoutExceeded:
		logger.Error().Err(err).Dur("duration", result.Duration).Msg("Playbook run timed out")
	default:
		logger.Error().Err(err).Str("kind", string(kind)).Msg("Playbook run failed")
	}
}
