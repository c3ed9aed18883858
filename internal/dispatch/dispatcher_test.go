package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quark/internal/args"
	"github.com/roach88/quark/internal/codec"
	"github.com/roach88/quark/internal/ir"
	"github.com/roach88/quark/internal/registry"
	"github.com/roach88/quark/internal/testutil"
)

// scaleSig is [int32 N, float32 alpha, float-buffer X(out)].
var scaleSig = ir.Signature{ir.TagInt32, ir.TagFloat32, ir.TagFloatBuffer}

func scaleHandler(_ context.Context, vals []ir.Value) error {
	n := int(vals[0].(ir.Int32))
	alpha := float32(vals[1].(ir.Float32))
	x := vals[2].(*ir.FloatBuffer).Data()
	if len(x) < n {
		return errors.New("X shorter than N")
	}
	for i := 0; i < n; i++ {
		x[i] *= alpha
	}
	return nil
}

// fixture builds a dispatcher over a small registry and counts handler calls.
type fixture struct {
	d      *Dispatcher
	ledger *ir.Ledger
	calls  int
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, extra map[string]registry.Handler, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{ledger: ir.NewLedger(), logs: &bytes.Buffer{}}

	counted := func(h registry.Handler) registry.Handler {
		return func(ctx context.Context, vals []ir.Value) error {
			f.calls++
			return h(ctx, vals)
		}
	}

	b := registry.NewBuilder()
	require.NoError(t, b.Register("catzilla", "scale", scaleSig, []bool{false, false, true}, counted(scaleHandler)))
	for op, h := range extra {
		require.NoError(t, b.Register("catzilla", op, scaleSig, []bool{false, false, true}, counted(h)))
	}

	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	all := append([]Option{
		WithLedger(f.ledger),
		WithLogger(logger),
		WithIDGenerator(testutil.NewFixedIDGenerator("d-1")),
	}, opts...)
	f.d = New(b.Build(), all...)
	return f
}

func TestDispatchSuccessCommitsOutput(t *testing.T) {
	f := newFixture(t, nil)
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1, 2, 3, 4})

	out, err := f.d.Execute(context.Background(), Request{
		Executor:  "catzilla",
		Operation: "scale",
		Args:      []string{"4", "2", x},
	})
	require.NoError(t, err)

	assert.Equal(t, "d-1", out.ID)
	assert.Equal(t, StateCommitted, out.State)
	assert.Equal(t, []State{StateIdle, StateResolved, StateArgsParsed, StateExecuted, StateCommitted}, out.Trace)
	assert.Equal(t, []string{x}, out.Committed)
	assert.Nil(t, out.Err)
	assert.Equal(t, 1, f.calls)

	assert.Equal(t, []float32{2, 4, 6, 8}, testutil.ReadFloats(t, x))
	assert.Equal(t, int64(0), f.ledger.Outstanding())
	assert.Equal(t, int64(1), f.ledger.Acquired())
}

func TestDispatchCommitUsesDecodedCount(t *testing.T) {
	f := newFixture(t, nil)
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1, 1, 1, 1, 1})

	// N touches only the first two elements; the file keeps all five.
	require.NoError(t, f.d.Dispatch(context.Background(), "catzilla", "scale", []string{"2", "3", x}))
	assert.Equal(t, []float32{3, 3, 1, 1, 1}, testutil.ReadFloats(t, x))
}

func TestDispatchUnknownExecutor(t *testing.T) {
	f := newFixture(t, nil)

	out, err := f.d.Execute(context.Background(), Request{Executor: "nope", Operation: "nope"})
	require.Error(t, err)
	assert.True(t, IsUnknownExecutor(err))
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, []State{StateIdle, StateFailed}, out.Trace)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, int64(0), f.ledger.Acquired())
}

func TestDispatchUnknownOperatorTouchesNothing(t *testing.T) {
	f := newFixture(t, nil)
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1, 2})
	before := testutil.FileBytes(t, x)

	err := f.d.Dispatch(context.Background(), "catzilla", "gemv", []string{"2", "2", x})
	require.Error(t, err)
	assert.True(t, IsUnknownOperator(err))
	assert.False(t, IsUnknownExecutor(err))
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, before, testutil.FileBytes(t, x))
}

func TestDispatchArgumentError(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name    string
		args    []string
		isArity bool
	}{
		{"arity", []string{"1"}, true},
		{"bad number", []string{"one", "2", "x.bin"}, false},
		{"missing buffer", []string{"1", "2", filepath.Join(t.TempDir(), "missing.bin")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.d.Execute(context.Background(), Request{
				Executor: "catzilla", Operation: "scale", Args: tt.args,
			})
			require.Error(t, err)
			assert.True(t, IsArgumentError(err))
			assert.Equal(t, tt.isArity, args.IsArityError(err))

			var pe *args.ParseError
			assert.ErrorAs(t, err, &pe)

			assert.Equal(t, []State{StateIdle, StateResolved, StateFailed}, out.Trace)
			assert.Equal(t, 0, f.calls)
			assert.Equal(t, int64(0), f.ledger.Outstanding())
		})
	}
}

func TestDispatchHandlerFailureLeavesOutputUntouched(t *testing.T) {
	failing := func(_ context.Context, vals []ir.Value) error {
		// Scribble on the in-memory buffer before failing.
		x := vals[2].(*ir.FloatBuffer).Data()
		for i := range x {
			x[i] = -1
		}
		return errors.New("kernel launch failed")
	}
	f := newFixture(t, map[string]registry.Handler{"broken": failing})
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1, 2, 3})
	before := testutil.FileBytes(t, x)

	out, err := f.d.Execute(context.Background(), Request{
		Executor: "catzilla", Operation: "broken", Args: []string{"3", "2", x},
	})
	require.Error(t, err)
	assert.True(t, IsHandlerFailed(err))
	assert.Contains(t, err.Error(), "kernel launch failed")
	assert.Equal(t, []State{StateIdle, StateResolved, StateArgsParsed, StateFailed}, out.Trace)
	assert.Empty(t, out.Committed)

	assert.Equal(t, before, testutil.FileBytes(t, x))
	assert.Equal(t, int64(0), f.ledger.Outstanding())
}

func TestDispatchHandlerPanic(t *testing.T) {
	panicking := func(context.Context, []ir.Value) error {
		panic("index out of range")
	}
	f := newFixture(t, map[string]registry.Handler{"panics": panicking})
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1})
	before := testutil.FileBytes(t, x)

	err := f.d.Dispatch(context.Background(), "catzilla", "panics", []string{"1", "1", x})
	require.Error(t, err)
	assert.True(t, IsHandlerFailed(err))
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "index out of range")

	assert.Equal(t, before, testutil.FileBytes(t, x))
	assert.Equal(t, int64(0), f.ledger.Outstanding())
}

func TestDispatchCommitFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	require.NoError(t, os.Mkdir(dir, 0o755))

	// The handler removes the output directory, so the write-back cannot create the file.
	vanish := func(context.Context, []ir.Value) error {
		return os.RemoveAll(dir)
	}
	f := newFixture(t, map[string]registry.Handler{"vanish": vanish})
	x := testutil.WriteFloats(t, dir, "x.bin", []float32{1, 2})

	out, err := f.d.Execute(context.Background(), Request{
		Executor: "catzilla", Operation: "vanish", Args: []string{"2", "1", x},
	})
	require.Error(t, err)
	assert.True(t, IsCommitFailed(err))
	assert.Equal(t, ir.ErrCodeIO, codec.CodeOf(err))
	assert.Equal(t, []State{StateIdle, StateResolved, StateArgsParsed, StateExecuted, StateFailed}, out.Trace)
	assert.Equal(t, int64(0), f.ledger.Outstanding())
}

func TestDispatchElapsedUsesClock(t *testing.T) {
	clock := testutil.NewStepClock(7 * time.Millisecond)
	f := newFixture(t, nil, WithClock(clock.Now))
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1})

	out, err := f.d.Execute(context.Background(), Request{
		Executor: "catzilla", Operation: "scale", Args: []string{"1", "1", x},
	})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Millisecond, out.Elapsed)
}

func TestDispatchRecordsOutcome(t *testing.T) {
	var got []Record
	rec := RecorderFunc(func(_ context.Context, r Record) error {
		got = append(got, r)
		return nil
	})
	f := newFixture(t, nil, WithRecorder(rec), WithIDGenerator(NewFixedGenerator("d-ok", "d-bad")))
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1})

	require.NoError(t, f.d.Dispatch(context.Background(), "catzilla", "scale", []string{"1", "2", x}))
	require.Error(t, f.d.Dispatch(context.Background(), "nope", "nope", nil))

	require.Len(t, got, 2)
	assert.Equal(t, "d-ok", got[0].ID)
	assert.Equal(t, "committed", got[0].State)
	assert.Equal(t, []string{"1", "2", x}, got[0].Args)
	assert.Empty(t, got[0].ErrorCode)

	assert.Equal(t, "d-bad", got[1].ID)
	assert.Equal(t, "failed", got[1].State)
	assert.Equal(t, string(ir.ErrCodeUnknownExecutor), got[1].ErrorCode)
	assert.NotNil(t, got[1].Args)
}

func TestDispatchRecorderFailureIsIgnored(t *testing.T) {
	rec := RecorderFunc(func(context.Context, Record) error {
		return errors.New("disk full")
	})
	f := newFixture(t, nil, WithRecorder(rec))
	x := testutil.WriteFloats(t, t.TempDir(), "x.bin", []float32{1})

	require.NoError(t, f.d.Dispatch(context.Background(), "catzilla", "scale", []string{"1", "2", x}))
	assert.Contains(t, f.logs.String(), "journal write failed")
}

func TestDispatchLogsTransitions(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.d.Dispatch(context.Background(), "nope", "nope", nil)

	logs := f.logs.String()
	assert.Contains(t, logs, "to=failed")
	assert.Contains(t, logs, "dispatch failed")
	assert.Contains(t, logs, "code=UNKNOWN_EXECUTOR")
}

func TestOperatorErrorFormat(t *testing.T) {
	err := &OperatorError{
		Code:      ir.ErrCodeUnknownOperator,
		Executor:  "catzilla",
		Operation: "gemv",
		Message:   "no such operation",
	}
	assert.Equal(t, "UNKNOWN_OPERATOR: no such operation (operator=catzilla.gemv)", err.Error())
	assert.Equal(t, ir.ErrorCode(""), CodeOf(errors.New("plain")))
}
