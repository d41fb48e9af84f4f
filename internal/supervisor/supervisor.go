// Package supervisor implements the reconciliation engine: the single
// cooperative loop that drives every service from its observed ActualState
// toward its DesiredState, subject to dependency gating, health gating,
// and restart policy. Nothing outside this package mutates a
// runtimestate.Record; everything else learns what happened from the
// Events/Output channels or from Store().Snapshot() copies.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/micromux/micromux/internal/audit"
	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/depgraph"
	"github.com/micromux/micromux/internal/health"
	"github.com/micromux/micromux/internal/hooks"
	"github.com/micromux/micromux/internal/logger"
	"github.com/micromux/micromux/internal/metrics"
	"github.com/micromux/micromux/internal/protocol"
	"github.com/micromux/micromux/internal/ptyproc"
	"github.com/micromux/micromux/internal/restart"
	"github.com/micromux/micromux/internal/runtimestate"
	"github.com/micromux/micromux/internal/tracing"
)

// resourceInstanceID is the constant instance label for gopsutil/Prometheus
// resource metrics: micromux runs exactly one instance per service, unlike
// the teacher's scaled process groups.
const resourceInstanceID = "0"

// Options configures a Supervisor. Zero values are replaced with spec.md's
// documented defaults.
type Options struct {
	TickInterval          time.Duration
	StabilityWindow       time.Duration
	ShutdownGrace         time.Duration
	OutputBufferSize      int
	PTYRows, PTYCols      int
	Hooks                 config.HooksConfig
	Logger                *slog.Logger
	Audit                 *audit.Logger
	ResourceSampleInterval time.Duration
	Version               string
}

func (o *Options) setDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.StabilityWindow <= 0 {
		o.StabilityWindow = 10 * time.Second
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = 5 * time.Second
	}
	if o.OutputBufferSize <= 0 {
		o.OutputBufferSize = 1 << 20
	}
	if o.PTYRows <= 0 {
		o.PTYRows = 24
	}
	if o.PTYCols <= 0 {
		o.PTYCols = 80
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Audit == nil {
		o.Audit = audit.NewLogger(o.Logger, false)
	}
	if o.ResourceSampleInterval <= 0 {
		o.ResourceSampleInterval = 2 * time.Second
	}
	if o.Version == "" {
		o.Version = "dev"
	}
}

type exitNotice struct {
	name   string
	status ptyproc.ExitStatus
}

type healthNotice struct {
	name   string
	result runtimestate.HealthResult
}

type outputNotice struct {
	name  string
	chunk []byte
}

// Supervisor is the reconciliation engine for one resolved configuration.
type Supervisor struct {
	specs map[string]*config.ServiceSpec
	graph *depgraph.Graph
	store *runtimestate.Store
	opts  Options
	log   *slog.Logger
	hooks *hooks.Executor
	audit *audit.Logger

	cmds   chan protocol.Command
	events chan protocol.Event
	output chan protocol.Event

	internalExit   chan exitNotice
	internalHealth chan healthNotice
	internalOutput chan outputNotice

	procs          map[string]*ptyproc.Process
	healthCancel   map[string]context.CancelFunc
	backoffUntil   map[string]time.Time
	attachSubs     map[string][]chan<- []byte
	outputLagWarned map[string]bool
	procWriters    map[string]*logger.ProcessWriter

	resources *metrics.ResourceCollector

	runCtx    context.Context
	runCancel context.CancelFunc
}

// New builds a Supervisor for the given resolved specs and dependency
// graph. Every service starts desired Up. Commands sent before Run are
// applied only after Run's first reconcile pass, so a Disable queued that
// way stops a service that pass already started; it does not keep the
// service from starting.
func New(specs map[string]*config.ServiceSpec, graph *depgraph.Graph, opts Options) *Supervisor {
	opts.setDefaults()

	names := graph.Names()
	store := runtimestate.NewStore(names)
	for _, name := range names {
		rec, _ := store.Get(name)
		rec.Desired = runtimestate.DesiredState{Up: true}
	}

	return &Supervisor{
		specs:  specs,
		graph:  graph,
		store:  store,
		opts:   opts,
		log:    opts.Logger,
		hooks:  hooks.NewExecutor(opts.Logger),
		audit:  opts.Audit,

		cmds:   make(chan protocol.Command, 64),
		events: make(chan protocol.Event, 256),
		output: make(chan protocol.Event, 64),

		internalExit:   make(chan exitNotice, 16),
		internalHealth: make(chan healthNotice, 16),
		internalOutput: make(chan outputNotice, 256),

		procs:           make(map[string]*ptyproc.Process),
		healthCancel:    make(map[string]context.CancelFunc),
		backoffUntil:    make(map[string]time.Time),
		attachSubs:      make(map[string][]chan<- []byte),
		outputLagWarned: make(map[string]bool),
		procWriters:     make(map[string]*logger.ProcessWriter),

		resources: metrics.NewResourceCollector(opts.ResourceSampleInterval, 300, opts.Logger),
	}
}

// Commands returns the channel callers send protocol.Command values on.
func (s *Supervisor) Commands() chan<- protocol.Command { return s.cmds }

// Events returns the engine's lifecycle/state event stream.
func (s *Supervisor) Events() <-chan protocol.Event { return s.events }

// Output returns the engine's PTY output event stream, separate from
// Events so a lagging UI only loses output, never state transitions.
func (s *Supervisor) Output() <-chan protocol.Event { return s.output }

// Store exposes the runtime state store for read-only snapshotting by a UI.
func (s *Supervisor) Store() *runtimestate.Store { return s.store }

// Run drives the reconciliation loop until ctx is canceled or a Shutdown
// command is received, then performs graceful drain and returns.
func (s *Supervisor) Run(ctx context.Context) {
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	defer s.runCancel()

	startedAt := time.Now()
	metrics.SetManagerStartTime(float64(startedAt.Unix()))
	metrics.SetManagerProcessCount(len(s.graph.Names()))
	metrics.SetBuildInfo(s.opts.Version, runtime.Version())

	s.audit.LogSystemStart(s.opts.Version)

	if err := s.hooks.ExecuteSequence(ctx, s.opts.Hooks.PreStart); err != nil {
		s.log.Error("pre_start hooks failed", "error", err)
	}

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	resourceTicker := time.NewTicker(s.opts.ResourceSampleInterval)
	defer resourceTicker.Stop()

	for _, name := range s.graph.TopologicalOrder() {
		s.reconcile(name)
	}

	shuttingDown := false

	for {
		select {
		case cmd := <-s.cmds:
			if cmd.Kind == protocol.Shutdown {
				shuttingDown = true
				s.beginShutdown()
				continue
			}
			s.applyCommand(cmd)

		case n := <-s.internalExit:
			s.handleExit(n.name, n.status)

		case n := <-s.internalHealth:
			s.handleHealth(n.name, n.result)

		case n := <-s.internalOutput:
			s.handleOutput(n.name, n.chunk)

		case <-ticker.C:
			s.onTick()

		case <-resourceTicker.C:
			s.sampleResources()

		case <-s.runCtx.Done():
			shuttingDown = true
			s.beginShutdown()
		}

		if shuttingDown && s.allSettled() {
			metrics.RecordShutdownDuration(time.Since(startedAt).Seconds())
			s.finishShutdown()
			return
		}
	}
}

// sampleResources takes one gopsutil reading per running service, recording
// it into the runtime record (for the TUI status line) and into the
// Prometheus resource gauges.
func (s *Supervisor) sampleResources() {
	for name, proc := range s.procs {
		rec, ok := s.store.Get(name)
		if !ok {
			continue
		}
		sample, err := metrics.CollectProcessMetrics(proc.Pid(), name, resourceInstanceID)
		if err != nil {
			metrics.ResourceCollectionErrors.WithLabelValues(name, resourceInstanceID).Inc()
			continue
		}
		metrics.UpdatePrometheusMetrics(name, resourceInstanceID, sample)
		s.resources.AddSample(name, resourceInstanceID, *sample)
		rec.Resource = runtimestate.ResourceUsage{
			SampledAt:  sample.Timestamp,
			CPUPercent: sample.CPUPercent,
			RSSBytes:   sample.MemoryRSSBytes,
		}
	}
}

func (s *Supervisor) applyCommand(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.Start:
		rec, ok := s.store.Get(cmd.Name)
		if !ok {
			return
		}
		rec.Desired = runtimestate.DesiredState{Up: true}
		if rec.Actual.Kind == runtimestate.Disabled {
			rec.Actual = runtimestate.ActualState{Kind: runtimestate.Pending}
		}
		s.reconcile(cmd.Name)

	case protocol.Stop:
		rec, ok := s.store.Get(cmd.Name)
		if !ok {
			return
		}
		rec.Desired = runtimestate.DesiredState{Up: false, Reason: runtimestate.ReasonUserDisabled}
		s.reconcile(cmd.Name)

	case protocol.Restart:
		s.restartOne(cmd.Name)

	case protocol.RestartAll:
		for _, name := range s.graph.Names() {
			s.restartOne(name)
		}

	case protocol.Disable:
		rec, ok := s.store.Get(cmd.Name)
		if !ok {
			return
		}
		rec.Desired = runtimestate.DesiredState{Up: false, Reason: runtimestate.ReasonUserDisabled}
		rec.DisabledReason = "user requested disable"
		s.audit.LogProcessDisable(cmd.Name)
		s.reconcile(cmd.Name)

	case protocol.Enable:
		rec, ok := s.store.Get(cmd.Name)
		if !ok {
			return
		}
		rec.DisabledReason = ""
		rec.Desired = runtimestate.DesiredState{Up: true}
		if rec.Actual.Kind == runtimestate.Disabled {
			rec.Actual = runtimestate.ActualState{Kind: runtimestate.Pending}
		}
		s.audit.LogProcessEnable(cmd.Name)
		s.reconcile(cmd.Name)

	case protocol.Attach:
		if proc, ok := s.procs[cmd.Name]; ok && cmd.ReplyTo != nil {
			cmd.ReplyTo <- proc.Replay()
		}
		if cmd.ReplyTo != nil {
			s.attachSubs[cmd.Name] = append(s.attachSubs[cmd.Name], cmd.ReplyTo)
		}

	case protocol.Detach:
		delete(s.attachSubs, cmd.Name)

	case protocol.SendInput:
		if proc, ok := s.procs[cmd.Name]; ok {
			_, _ = proc.Write(cmd.Input)
		}

	case protocol.Resize:
		if proc, ok := s.procs[cmd.Name]; ok {
			_ = proc.Resize(cmd.Rows, cmd.Cols)
		}
	}
}

// restartOne is Restart(name): a disabled service is left untouched
// (spec.md §7 "Restart of a Disabled service does not start it"), a
// running one is stopped and immediately requeued with a reset attempt
// counter, and an already-exited one is requeued directly.
func (s *Supervisor) restartOne(name string) {
	rec, ok := s.store.Get(name)
	if !ok || rec.Actual.Kind == runtimestate.Disabled {
		return
	}
	rec.Desired = runtimestate.DesiredState{Up: true}
	rec.Attempts = 0
	delete(s.backoffUntil, name)

	switch rec.Actual.Kind {
	case runtimestate.Running, runtimestate.Starting:
		s.stopProcess(name, rec)
	case runtimestate.Exited, runtimestate.Pending:
		rec.Actual = runtimestate.ActualState{Kind: runtimestate.Pending}
		s.reconcile(name)
	}
}

func (s *Supervisor) conditionSatisfied(depName string, cond config.Condition) bool {
	dep, ok := s.store.Get(depName)
	if !ok {
		return false
	}
	switch cond {
	case config.ConditionStarted:
		switch dep.Actual.Kind {
		case runtimestate.Running, runtimestate.Stopping, runtimestate.Exited:
			return true
		}
		return false
	case config.ConditionHealthy:
		return dep.Actual.Kind == runtimestate.Running && dep.Actual.Health == runtimestate.HealthHealthy
	case config.ConditionCompletedSuccessfully:
		return dep.Actual.Kind == runtimestate.Exited && !dep.Actual.Restarting &&
			!dep.Actual.UnknownExit && dep.Actual.ExitCode == 0
	default:
		return false
	}
}

// reconcile applies spec.md §4.6's per-wake transition rules to one
// service, then recurses into its dependents since their gating may have
// just changed.
func (s *Supervisor) reconcile(name string) {
	rec, ok := s.store.Get(name)
	if !ok {
		return
	}

	switch {
	case rec.Desired.Up && rec.Actual.Kind == runtimestate.Pending:
		if s.graph.GatingReady(name, s.conditionSatisfied) {
			s.startProcess(name, rec)
		}

	case rec.Desired.Up && rec.Actual.Kind == runtimestate.Exited && rec.Actual.Restarting:
		if until, ok := s.backoffUntil[name]; !ok || !time.Now().Before(until) {
			if s.graph.GatingReady(name, s.conditionSatisfied) {
				s.startProcess(name, rec)
			}
		}

	case rec.Desired.Up && rec.Actual.Kind == runtimestate.Exited && !rec.Actual.Restarting:
		s.evaluateRestart(name, rec)

	case !rec.Desired.Up:
		if rec.Actual.Kind == runtimestate.Running || rec.Actual.Kind == runtimestate.Starting {
			s.stopProcess(name, rec)
		}
	}

	for _, dependent := range s.graph.Dependents(name) {
		s.maybeWakeDependent(dependent)
	}
}

func (s *Supervisor) maybeWakeDependent(name string) {
	rec, ok := s.store.Get(name)
	if !ok || !rec.Desired.Up {
		return
	}
	if rec.Actual.Kind == runtimestate.Pending && s.graph.GatingReady(name, s.conditionSatisfied) {
		s.startProcess(name, rec)
	}
}

func (s *Supervisor) startProcess(name string, rec *runtimestate.Record) {
	spec := s.specs[name]

	_, span := tracing.StartProcessSpan(s.runCtx, name, "spawn")
	defer span.End()

	proc, synth, err := ptyproc.Start(s.runCtx, spec, s.opts.PTYRows, s.opts.PTYCols, s.opts.OutputBufferSize)
	if err != nil {
		tracing.RecordError(span, err, "spawn failed")
		s.emitWarning(name, "spawn failed: "+err.Error())
		return
	}

	rec.Actual = runtimestate.ActualState{Kind: runtimestate.Starting}

	if synth.Synthetic {
		tracing.RecordError(span, fmt.Errorf("synthetic exit"), "spawn failed, treated as immediate exit")
		s.log.Warn("spawn failed, treating as immediate exit", "service", name)
		s.handleExit(name, synth)
		return
	}

	tracing.RecordSuccess(span)

	s.procs[name] = proc
	rec.Handle = proc
	rec.StartedAt = time.Now()
	metrics.RecordProcessStart(name, float64(rec.StartedAt.Unix()))

	if rec.LastPid != 0 {
		s.audit.LogProcessRestart(name, rec.LastPid, proc.Pid(), "restart")
	} else {
		s.audit.LogProcessStart(name, proc.Pid())
	}

	pw, err := logger.NewProcessWriter(s.log, resourceInstanceID, "pty", spec.Logging)
	if err != nil {
		s.log.Warn("disabling output pipeline: bad logging config", "service", name, "error", err)
		pw = nil
	}
	s.procWriters[name] = pw

	s.emit(protocol.Event{Kind: protocol.Started, Name: name, Pid: proc.Pid()})

	healthState := runtimestate.HealthNone
	if spec.HealthCheck != nil {
		healthState = runtimestate.HealthUnknown
	}
	rec.Actual = runtimestate.ActualState{Kind: runtimestate.Running, Health: healthState}
	s.emitStateChanged(name, rec, "")

	go func() {
		status := proc.Wait()
		// Deliberately a blocking send, not a select on runCtx.Done(): the
		// main loop keeps consuming until every service is settled, even
		// after the run context is canceled during shutdown, so this exit
		// must never be dropped.
		s.internalExit <- exitNotice{name: name, status: status}
	}()

	go func() {
		for chunk := range proc.Output() {
			s.internalOutput <- outputNotice{name: name, chunk: chunk}
		}
	}()

	if spec.HealthCheck != nil {
		hctx, cancel := context.WithCancel(s.runCtx)
		s.healthCancel[name] = cancel
		runner := health.NewRunner(name, spec.HealthCheck, s.log)
		go func() {
			for res := range runner.Start(hctx) {
				select {
				case s.internalHealth <- healthNotice{name: name, result: res}:
				case <-s.runCtx.Done():
					return
				}
			}
		}()
	}
}

func (s *Supervisor) stopProcess(name string, rec *runtimestate.Record) {
	proc, ok := s.procs[name]
	if !ok {
		return
	}
	rec.Actual.Kind = runtimestate.Stopping
	s.audit.LogProcessStop(name, proc.Pid(), "requested")
	s.emitStateChanged(name, rec, "")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace+time.Second)
		defer cancel()
		proc.Terminate(ctx, s.opts.ShutdownGrace)
	}()
}

func (s *Supervisor) handleExit(name string, status ptyproc.ExitStatus) {
	_, span := tracing.StartProcessSpan(s.runCtx, name, "exit")
	defer span.End()
	if status.Code != 0 || status.Unknown {
		tracing.RecordError(span, fmt.Errorf("exit code %d", status.Code), "process exited non-zero")
	} else {
		tracing.RecordSuccess(span)
	}

	rec, ok := s.store.Get(name)
	if !ok {
		return
	}

	if cancel, ok := s.healthCancel[name]; ok {
		cancel()
		delete(s.healthCancel, name)
	}
	delete(s.procs, name)
	if pw, ok := s.procWriters[name]; ok && pw != nil {
		pw.Flush()
	}
	delete(s.procWriters, name)
	s.resources.RemoveBuffer(name, resourceInstanceID)

	metrics.RecordProcessStop(name, status.Code)

	pid := 0
	if rec.Handle != nil {
		pid = rec.Handle.Pid()
	}
	if status.Code != 0 || status.Unknown {
		s.audit.LogProcessCrash(name, pid, status.Code, status.Signaled)
	}
	rec.Handle = nil
	rec.LastPid = pid
	rec.LastExitStatus = status.Code
	wasDisabling := rec.Desired.Reason == runtimestate.ReasonUserDisabled && rec.DisabledReason != ""

	rec.Actual = runtimestate.ActualState{
		Kind:        runtimestate.Exited,
		ExitCode:    status.Code,
		UnknownExit: status.Unknown,
	}

	s.emit(protocol.Event{
		Kind:     protocol.Exited,
		Name:     name,
		ExitCode: status.Code,
		Signaled: status.Signaled,
	})

	if wasDisabling {
		rec.Actual.Kind = runtimestate.Disabled
		s.emitStateChanged(name, rec, rec.DisabledReason)
		return
	}

	s.evaluateRestart(name, rec)
}

func (s *Supervisor) evaluateRestart(name string, rec *runtimestate.Record) {
	spec := s.specs[name]

	if !rec.Desired.Up {
		s.emitStateChanged(name, rec, "")
		return
	}

	should := restart.ShouldRestart(spec.Restart, rec.Actual.ExitCode, rec.Actual.ExitCode == 0 && !rec.Actual.UnknownExit, rec.Desired.Reason, rec.Attempts)
	if !should {
		s.emitStateChanged(name, rec, "")
		return
	}

	rec.Attempts++
	rec.Actual.Restarting = true
	s.backoffUntil[name] = time.Now().Add(restart.Backoff(rec.Attempts - 1))

	reason := "crash"
	if rec.Actual.ExitCode == 0 && !rec.Actual.UnknownExit {
		reason = "exit"
	}
	metrics.RecordProcessRestart(name, reason)

	s.emitStateChanged(name, rec, "")
}

func (s *Supervisor) handleHealth(name string, result runtimestate.HealthResult) {
	rec, ok := s.store.Get(name)
	if !ok {
		return
	}
	rec.PushHealth(result)

	s.emit(protocol.Event{Kind: protocol.HealthAttempt, Name: name, Health: result})
	metrics.RecordHealthCheck(name, "exec", result.Duration.Seconds(), result.Outcome == runtimestate.Pass)
	metrics.RecordHealthCheckFailures(name, rec.ConsecutiveFailures())

	spec := s.specs[name]
	if spec.HealthCheck == nil {
		return
	}

	if result.Outcome == runtimestate.Pass {
		if rec.Actual.Health != runtimestate.HealthHealthy {
			rec.Actual.Health = runtimestate.HealthHealthy
			s.emitStateChanged(name, rec, "")
		}
		return
	}

	threshold := spec.HealthCheck.Retries
	if threshold <= 0 {
		threshold = 1
	}
	if rec.ConsecutiveFailures() >= threshold && rec.Actual.Health != runtimestate.HealthUnhealthy {
		rec.Actual.Health = runtimestate.HealthUnhealthy
		s.emitStateChanged(name, rec, "")
	}
}

func (s *Supervisor) handleOutput(name string, chunk []byte) {
	if pw := s.procWriters[name]; pw != nil {
		pw.Write(chunk)
	}

	for _, sub := range s.attachSubs[name] {
		select {
		case sub <- chunk:
		default:
		}
	}

	select {
	case s.output <- protocol.Event{Kind: protocol.Output, Name: name, Output: chunk}:
		s.outputLagWarned[name] = false
	default:
		if !s.outputLagWarned[name] {
			s.outputLagWarned[name] = true
			s.emitWarning(name, "output dropped: consumer is lagging")
		}
	}
}

func (s *Supervisor) onTick() {
	now := time.Now()
	for _, name := range s.graph.Names() {
		rec, ok := s.store.Get(name)
		if !ok {
			continue
		}

		if rec.Actual.Kind == runtimestate.Running && rec.Attempts > 0 {
			if !rec.StartedAt.IsZero() && now.Sub(rec.StartedAt) >= s.opts.StabilityWindow {
				rec.Attempts = 0
			}
		}

		if rec.Desired.Up && rec.Actual.Kind == runtimestate.Exited && rec.Actual.Restarting {
			s.reconcile(name)
		} else if rec.Desired.Up && rec.Actual.Kind == runtimestate.Pending {
			s.reconcile(name)
		}
	}
}

func (s *Supervisor) beginShutdown() {
	for _, name := range s.graph.Names() {
		rec, ok := s.store.Get(name)
		if !ok {
			continue
		}
		rec.Desired = runtimestate.DesiredState{Up: false, Reason: runtimestate.ReasonShutdown}
		if rec.Actual.Kind == runtimestate.Running || rec.Actual.Kind == runtimestate.Starting {
			s.stopProcess(name, rec)
		}
	}
}

func (s *Supervisor) allSettled() bool {
	for _, name := range s.graph.Names() {
		rec, ok := s.store.Get(name)
		if !ok {
			continue
		}
		switch rec.Actual.Kind {
		case runtimestate.Exited, runtimestate.Disabled, runtimestate.Pending:
		default:
			return false
		}
	}
	return true
}

func (s *Supervisor) finishShutdown() {
	if err := s.hooks.ExecuteSequence(context.Background(), s.opts.Hooks.PostStop); err != nil {
		s.log.Error("post_stop hooks failed", "error", err)
	}
	s.audit.LogSystemShutdown("normal", true)
	s.emit(protocol.Event{Kind: protocol.EngineShutdownComplete})
	close(s.events)
	close(s.output)
}

func (s *Supervisor) emit(ev protocol.Event) {
	ev.Time = time.Now()
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event channel full, dropping event", "kind", ev.Kind, "service", ev.Name)
	}
}

func (s *Supervisor) emitStateChanged(name string, rec *runtimestate.Record, reason string) {
	s.emit(protocol.Event{Kind: protocol.ServiceStateChanged, Name: name, State: rec.Actual, Reason: reason})
}

func (s *Supervisor) emitWarning(name, message string) {
	s.log.Warn(message, "service", name)
	s.emit(protocol.Event{Kind: protocol.Warning, Name: name, Message: message})
}
