// Package dispatch resolves an (executor, operation) key, parses the raw
// argument tokens against the operator's signature, invokes the handler,
// and commits output buffers back to their files.
//
// Output files are written only after the handler succeeds. Every buffer
// decoded for a dispatch is released exactly once, on every exit path.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/roach88/quark/internal/args"
	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/registry"
)

// Catalog is the read side of an operator table.
// *registry.Registry implements it.
type Catalog interface {
	Lookup(executor, operation string) (*registry.Descriptor, bool)
	HasExecutor(executor string) bool
}

// Request is one dispatch as supplied on the command line.
type Request struct {
	Executor  string
	Operation string
	Args      []string // raw tokens, one per signature position
}

// Outcome describes how a dispatch ended.
type Outcome struct {
	ID        string
	State     State
	Trace     []State
	Elapsed   time.Duration // handler wall time only
	Committed []string      // output paths written, in position order
	Err       *OperatorError
}

// Dispatcher runs dispatches against a fixed catalog.
type Dispatcher struct {
	catalog  Catalog
	logger   *slog.Logger
	ledger   *ir.Ledger
	recorder Recorder
	ids      IDGenerator
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithLedger counts every buffer decoded by this dispatcher against l.
func WithLedger(l *ir.Ledger) Option {
	return func(d *Dispatcher) { d.ledger = l }
}

// WithRecorder journals each outcome.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithIDGenerator overrides UUIDv7 dispatch IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Dispatcher) { d.ids = g }
}

// WithClock overrides time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a dispatcher over catalog.
func New(catalog Catalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog: catalog,
		logger:  slog.New(slog.DiscardHandler),
		ids:     UUIDv7Generator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one operator and reports only the error.
func (d *Dispatcher) Dispatch(ctx context.Context, executor, operation string, rawArgs []string) error {
	_, err := d.Execute(ctx, Request{Executor: executor, Operation: operation, Args: rawArgs})
	return err
}

// Execute runs one operator. The returned Outcome is never nil.
// The error, when non-nil, is always an *OperatorError.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (*Outcome, error) {
	m := newMachine()
	out := &Outcome{ID: d.ids.Generate()}
	log := d.logger.With(
		slog.String("id", out.ID),
		slog.String("executor", req.Executor),
		slog.String("operation", req.Operation),
	)

	oerr := d.run(ctx, req, m, out, log)
	out.State = m.state
	out.Trace = m.trace
	out.Err = oerr

	d.record(ctx, req, out, log)

	if oerr != nil {
		log.Warn("dispatch failed", "code", oerr.Code, "error", oerr)
		return out, oerr
	}
	log.Info("dispatch committed",
		"elapsed", out.Elapsed,
		"outputs", len(out.Committed),
	)
	return out, nil
}

func (d *Dispatcher) run(ctx context.Context, req Request, m *machine, out *Outcome, log *slog.Logger) *OperatorError {
	desc, ok := d.catalog.Lookup(req.Executor, req.Operation)
	if !ok {
		d.step(m, StateFailed, log)
		if !d.catalog.HasExecutor(req.Executor) {
			return newOperatorError(ir.ErrCodeUnknownExecutor, req,
				fmt.Sprintf("no executor named %q", req.Executor), nil)
		}
		return newOperatorError(ir.ErrCodeUnknownOperator, req,
			fmt.Sprintf("executor %q has no operation %q", req.Executor, req.Operation), nil)
	}
	d.step(m, StateResolved, log)

	vals, err := args.Parse(req.Args, desc.Signature, args.WithLedger(d.ledger))
	if err != nil {
		d.step(m, StateFailed, log)
		return newOperatorError(ir.ErrCodeArgument, req, "argument parsing failed", err)
	}
	defer ir.Release(vals)
	d.step(m, StateArgsParsed, log)

	start := d.now()
	err = d.invoke(ctx, desc.Handler, vals, log)
	out.Elapsed = d.now().Sub(start)
	if err != nil {
		d.step(m, StateFailed, log)
		return newOperatorError(ir.ErrCodeHandlerFailed, req, "handler failed", err)
	}
	d.step(m, StateExecuted, log)

	for _, i := range desc.OutputPositions() {
		if err := commit(req.Args[i], vals[i]); err != nil {
			d.step(m, StateFailed, log)
			return newOperatorError(ir.ErrCodeCommitFailed, req,
				fmt.Sprintf("cannot write output position %d", i), err)
		}
		out.Committed = append(out.Committed, req.Args[i])
	}
	d.step(m, StateCommitted, log)

	return nil
}

// invoke calls h, turning a panic into an error wrapping ErrPanic.
func (d *Dispatcher) invoke(ctx context.Context, h registry.Handler, vals []ir.Value, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			log.Debug("handler panic", "panic", r, "stack", string(stack[:n]))

			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	return h(ctx, vals)
}

func (d *Dispatcher) step(m *machine, to State, log *slog.Logger) {
	from := m.state
	m.advance(to)
	log.Debug("transition", "from", from.String(), "to", to.String())
}

func (d *Dispatcher) record(ctx context.Context, req Request, out *Outcome, log *slog.Logger) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordDispatch(ctx, newRecord(out.ID, req, out)); err != nil {
		log.Warn("journal write failed", "error", err)
	}
}

// commit writes one output buffer back to path using its decoded count.
func commit(path string, v ir.Value) error {
	switch buf := v.(type) {
	case *ir.FloatBuffer:
		return codec.EncodeFlat(path, buf.Data())
	case *ir.DoubleBuffer:
		return codec.EncodeFlat(path, buf.Data())
	default:
		return fmt.Errorf("position holds %s, not a flat buffer", v.Tag())
	}
}
