package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Handler implements one boundary method. A nil result is sent as null.
type Handler func(ctx context.Context, args *Args) (dyn.Value, error)

// Module is one vendor extension exposed through the bridge.
type Module interface {
	// Name is the boundary module name, e.g. "AEPCore".
	Name() string

	// Register adds the module's methods to t.
	Register(t *Table)

	// Close releases pending results and gates.
	Close()
}

// Table collects the methods of one module during registration.
type Table struct {
	module  string
	methods map[string]Handler
}

// Handle registers h under method. Registering a name twice panics; it is
// always a wiring mistake.
func (t *Table) Handle(method string, h Handler) {
	if _, dup := t.methods[method]; dup {
		panic(fmt.Sprintf("bridge: %s.%s registered twice", t.module, method))
	}
	t.methods[method] = h
}

// Env is what every module constructor receives from the bridge.
type Env struct {
	Events *call.Emitter
	Logger *slog.Logger
}

// CallRecord describes one completed boundary call.
type CallRecord struct {
	Module   string
	Method   string
	Args     dyn.List
	Result   dyn.Value
	Err      *call.Error
	Duration time.Duration
}

// Recorder receives every completed call. Recording failures are logged and
// never fail the call.
type Recorder interface {
	Record(ctx context.Context, rec CallRecord) error
}

type moduleEntry struct {
	module  Module
	methods map[string]Handler
}

// Bridge dispatches boundary calls to registered modules.
type Bridge struct {
	mu       sync.RWMutex
	modules  map[string]*moduleEntry
	events   *call.Emitter
	logger   *slog.Logger
	recorder Recorder
	closed   bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithRecorder records every call, e.g. into the journal.
func WithRecorder(r Recorder) Option {
	return func(b *Bridge) { b.recorder = r }
}

// WithEmitter shares an existing emitter instead of creating one.
func WithEmitter(e *call.Emitter) Option {
	return func(b *Bridge) { b.events = e }
}

// New creates a Bridge with no modules.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		modules: make(map[string]*moduleEntry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.events == nil {
		b.events = call.NewEmitter()
	}
	return b
}

// Env returns the environment to construct modules with.
func (b *Bridge) Env() Env {
	return Env{Events: b.events, Logger: b.logger}
}

// Events returns the shared event emitter.
func (b *Bridge) Events() *call.Emitter {
	return b.events
}

// Register adds modules. Names must be unique.
func (b *Bridge) Register(mods ...Module) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range mods {
		name := m.Name()
		if _, dup := b.modules[name]; dup {
			return fmt.Errorf("module %q already registered", name)
		}
		t := &Table{module: name, methods: make(map[string]Handler)}
		m.Register(t)
		b.modules[name] = &moduleEntry{module: m, methods: t.methods}
		b.logger.Debug("module registered", "module", name, "methods", len(t.methods))
	}
	return nil
}

// Modules returns registered module names in sorted order.
func (b *Bridge) Modules() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.modules))
	for name := range b.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Methods returns every published "Module.method" in sorted order.
func (b *Bridge) Methods() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for name, e := range b.modules {
		for method := range e.methods {
			out = append(out, name+"."+method)
		}
	}
	slices.Sort(out)
	return out
}

// SplitOp splits "Module.method".
func SplitOp(op string) (module, method string, ok bool) {
	i := strings.LastIndexByte(op, '.')
	if i <= 0 || i == len(op)-1 {
		return "", "", false
	}
	return op[:i], op[i+1:], true
}

// CallOp is Call with a combined "Module.method" name.
func (b *Bridge) CallOp(ctx context.Context, op string, args dyn.List) (dyn.Value, error) {
	module, method, ok := SplitOp(op)
	if !ok {
		err := call.Programming(op, "operation must be Module.method")
		err.Code = call.CodeUnknownMethod
		return nil, err
	}
	return b.Call(ctx, module, method, args)
}

// Call invokes module.method with args.
//
// Decode, vendor and programming failures are returned as *call.Error.
// A registry miss is not a failure at the boundary: it is logged, recorded
// and answered with null.
func (b *Bridge) Call(ctx context.Context, module, method string, args dyn.List) (dyn.Value, error) {
	op := module + "." + method
	start := time.Now()

	h, err := b.lookup(module, method)
	if err != nil {
		b.finish(ctx, module, method, args, nil, err, start)
		return nil, err
	}

	a := NewArgs(op, args)
	result, herr := h(ctx, a)
	if herr == nil && a.Err() != nil {
		herr = a.Err()
	}
	if herr != nil {
		ce := call.Classify(op, herr)
		b.finish(ctx, module, method, args, nil, ce, start)
		if ce.Kind == call.KindLookupMiss {
			b.logger.Debug("lookup miss", "op", op, "message", ce.Message)
			return dyn.Null{}, nil
		}
		return nil, ce
	}
	if result == nil {
		result = dyn.Null{}
	}
	b.finish(ctx, module, method, args, result, nil, start)
	return result, nil
}

func (b *Bridge) lookup(module, method string) (Handler, *call.Error) {
	op := module + "." + method
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, call.Canceled(op, fmt.Errorf("bridge closed"))
	}
	e, ok := b.modules[module]
	if !ok {
		err := call.Programming(op, "unknown module %q", module)
		err.Code = call.CodeUnknownMethod
		return nil, err
	}
	h, ok := e.methods[method]
	if !ok {
		err := call.Programming(op, "unknown method %q on %s", method, module)
		err.Code = call.CodeUnknownMethod
		return nil, err
	}
	return h, nil
}

func (b *Bridge) finish(ctx context.Context, module, method string, args dyn.List, result dyn.Value, err *call.Error, start time.Time) {
	elapsed := time.Since(start)
	if err != nil && err.Kind != call.KindLookupMiss {
		b.logger.Debug("call failed", "op", module+"."+method, "kind", err.Kind, "code", err.Code, "error", err.Message)
	}
	if b.recorder == nil {
		return
	}
	rec := CallRecord{Module: module, Method: method, Args: args, Result: result, Err: err, Duration: elapsed}
	if rerr := b.recorder.Record(ctx, rec); rerr != nil {
		b.logger.Warn("failed to record call", "op", module+"."+method, "error", rerr)
	}
}

// Close closes every module, releasing pending results and gates. Calls
// made after Close fail as canceled.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	mods := make([]Module, 0, len(b.modules))
	for _, e := range b.modules {
		mods = append(mods, e.module)
	}
	b.mu.Unlock()

	for _, m := range mods {
		m.Close()
	}
}
