package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/journal"
	"github.com/roach88/aepbridge/internal/messaging"
	"github.com/roach88/aepbridge/internal/simulator"
	"github.com/roach88/aepbridge/internal/testutil"
)

// waitTimeout bounds every wait on a message presentation.
const waitTimeout = 5 * time.Second

const setMessageSettingsOp = messaging.Name + ".setMessageSettings"

// Harness runs one scenario. Events are buffered as they are emitted and
// moved into the trace at step boundaries, so traces are byte-identical
// between runs even though presentations finish on their own goroutines.
type Harness struct {
	bridge  *bridge.Bridge
	sim     *simulator.Simulator
	journal *journal.Journal
	logger  *slog.Logger
	result  *Result

	mu     sync.Mutex
	events []TraceEvent
	asked  int
	askCh  chan struct{}

	vendorSeen int

	// pending are presentations parked on shouldShowMessage, oldest first.
	// banked counts setMessageSettings answers nobody was waiting for.
	pending []*presentation
	banked  int
}

type presentation struct {
	id    string
	done  chan struct{}
	shown bool
	err   error
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes bridge and simulator logs. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh simulator and a private in-memory
// journal with sequential ids. A non-nil error means the scenario could
// not be run at all; failed expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	fixture, err := scenario.LoadFixture()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}
	simOpts := []simulator.Option{simulator.WithLogger(cfg.logger)}
	if scenario.PackageName != "" {
		simOpts = append(simOpts, simulator.WithPackageName(scenario.PackageName))
	}
	sim, err := simulator.New(fixture, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	j, err := journal.Open(":memory:", journal.WithIDGenerator(testutil.NewSequentialIDs("call")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	b := bridge.New(bridge.WithLogger(cfg.logger), bridge.WithRecorder(j.Recorder()))
	if err := b.Register(sim.Modules(b.Env())...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}

	h := &Harness{
		bridge:  b,
		sim:     sim,
		journal: j,
		logger:  cfg.logger,
		result:  NewResult(),
		askCh:   make(chan struct{}, 1),
	}
	sub := b.Events().SubscribeAll(h.onEvent)
	defer sub.Unsubscribe()

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step); err != nil {
			b.Close()
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.finish(); err != nil {
		return nil, err
	}

	if scenario.Events != nil {
		if got := h.result.EventNames(); !slices.Equal(got, scenario.Events) {
			h.result.AddError(fmt.Sprintf("events: expected %v, got %v", scenario.Events, got))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h.result, scenario.Assertions, j) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) runStep(ctx context.Context, index int, step Step) error {
	if step.Present != "" {
		return h.present(step.Present)
	}

	args, err := toList(step.Args)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}
	res, callErr := h.bridge.CallOp(ctx, step.Call, args)

	entry := TraceEvent{Type: TypeCall, Op: step.Call, Args: args, Result: res}
	var ce *call.Error
	if callErr != nil {
		if !errors.As(callErr, &ce) {
			ce = call.Classify(step.Call, callErr)
		}
		entry.Result = nil
		entry.Error = errorValue(ce)
	}
	h.result.add(entry)
	h.logger.Debug("step completed", "step", index, "op", step.Call, "ok", ce == nil)

	if step.Expect != nil {
		for _, msg := range checkExpect(index, step, res, ce) {
			h.result.AddError(msg)
		}
	}

	if step.Call == setMessageSettingsOp && ce == nil {
		if err := h.answered(); err != nil {
			return err
		}
	}
	h.flush()
	return nil
}

// answered mirrors how setMessageSettings hands its answer out: to the
// oldest parked presentation, or to the bank for the next one.
func (h *Harness) answered() error {
	if len(h.pending) == 0 {
		h.banked++
		return nil
	}
	p := h.pending[0]
	h.pending = h.pending[1:]
	return h.settle(p)
}

// present triggers message id in the background and returns once the
// application has been asked about it. With a banked answer it also waits
// for the presentation to finish.
func (h *Harness) present(id string) error {
	h.result.add(TraceEvent{Type: TypePresent, Message: id})

	h.mu.Lock()
	want := h.asked + 1
	h.mu.Unlock()

	p := &presentation{id: id, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.shown, p.err = h.sim.PresentMessage(id)
	}()

	timeout := time.NewTimer(waitTimeout)
	defer timeout.Stop()
	for {
		h.mu.Lock()
		asked := h.asked >= want
		h.mu.Unlock()
		if asked {
			break
		}
		select {
		case <-h.askCh:
		case <-p.done:
			// Failed before asking, e.g. no delegate.
			h.flush()
			h.recordPresented(p)
			return nil
		case <-timeout.C:
			return fmt.Errorf("present %s: application was never asked", id)
		}
	}

	if h.banked > 0 {
		h.banked--
		return h.settle(p)
	}
	h.pending = append(h.pending, p)
	h.flush()
	return nil
}

// settle waits for p to finish and records its outcome.
func (h *Harness) settle(p *presentation) error {
	select {
	case <-p.done:
	case <-time.After(waitTimeout):
		return fmt.Errorf("present %s: presentation did not finish", p.id)
	}
	h.flush()
	h.recordPresented(p)
	return nil
}

func (h *Harness) recordPresented(p *presentation) {
	e := TraceEvent{Type: TypePresented, Message: p.id, Shown: p.shown}
	if p.err != nil {
		e.Error = dyn.Map{"message": dyn.String(p.err.Error())}
	}
	h.result.add(e)
	h.flushVendor()
}

// finish closes the bridge, which answers every parked presentation with
// "do not show", and records them.
func (h *Harness) finish() error {
	h.bridge.Close()
	for _, p := range h.pending {
		if err := h.settle(p); err != nil {
			return err
		}
	}
	h.pending = nil
	h.flush()
	return nil
}

func (h *Harness) onEvent(name string, payload dyn.Value) {
	h.mu.Lock()
	h.events = append(h.events, TraceEvent{Type: TypeEvent, Name: name, Payload: payload})
	if name == messaging.EventShouldShowMessage {
		h.asked++
	}
	h.mu.Unlock()
	if name == messaging.EventShouldShowMessage {
		select {
		case h.askCh <- struct{}{}:
		default:
		}
	}
}

// flush moves buffered events and new vendor invocations into the trace.
func (h *Harness) flush() {
	h.mu.Lock()
	events := h.events
	h.events = nil
	h.mu.Unlock()
	for _, e := range events {
		h.result.add(e)
	}
	h.flushVendor()
}

func (h *Harness) flushVendor() {
	calls := h.sim.Calls()
	for _, c := range calls[h.vendorSeen:] {
		h.result.add(TraceEvent{Type: TypeVendor, Op: c.Op, Args: c.Args})
	}
	h.vendorSeen = len(calls)
}

// checkExpect compares a call outcome with the step's expect clause.
func checkExpect(index int, step Step, res dyn.Value, ce *call.Error) []string {
	var errs []string
	exp := step.Expect
	wantOK := exp.ErrorCode == "" && exp.ErrorKind == ""
	if exp.OK != nil {
		wantOK = *exp.OK
	}

	if ce == nil && !wantOK {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected failure, got success", index, step.Call))
		return errs
	}
	if ce != nil && wantOK {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected success, got %s/%s: %s",
			index, step.Call, ce.Kind, ce.Code, ce.Message))
		return errs
	}

	if ce != nil {
		if exp.ErrorCode != "" && ce.Code != exp.ErrorCode {
			errs = append(errs, fmt.Sprintf("steps[%d] %s: expected error code %q, got %q",
				index, step.Call, exp.ErrorCode, ce.Code))
		}
		if exp.ErrorKind != "" && string(ce.Kind) != exp.ErrorKind {
			errs = append(errs, fmt.Sprintf("steps[%d] %s: expected error kind %q, got %q",
				index, step.Call, exp.ErrorKind, ce.Kind))
		}
		return errs
	}

	if exp.Result != nil {
		want, err := dyn.FromAny(exp.Result)
		if err != nil {
			return append(errs, fmt.Sprintf("steps[%d] %s: bad expected result: %v", index, step.Call, err))
		}
		if !dyn.Contains(orNull(res), want) {
			got, _ := dyn.MarshalCanonical(orNull(res))
			wantJSON, _ := dyn.MarshalCanonical(want)
			errs = append(errs, fmt.Sprintf("steps[%d] %s: expected result %s, got %s",
				index, step.Call, wantJSON, got))
		}
	}
	return errs
}

func toList(args []any) (dyn.List, error) {
	out := make(dyn.List, len(args))
	for i, a := range args {
		v, err := dyn.FromAny(a)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
