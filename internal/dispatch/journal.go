package dispatch

import (
	"context"

	"github.com/roach88/quark/internal/ir"
)

// Record is the journal entry written after each dispatch.
type Record = ir.DispatchRecord

// Recorder persists dispatch records.
// A recorder failure is logged and never changes the dispatch result.
type Recorder interface {
	RecordDispatch(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record) error

// RecordDispatch calls f.
func (f RecorderFunc) RecordDispatch(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

func newRecord(id string, req Request, out *Outcome) Record {
	rec := Record{
		ID:        id,
		Executor:  req.Executor,
		Operation: req.Operation,
		Args:      append([]string{}, req.Args...),
		State:     out.State.String(),
		ElapsedNS: out.Elapsed.Nanoseconds(),
	}
	if out.Err != nil {
		rec.ErrorCode = string(out.Err.Code)
		rec.Message = out.Err.Error()
	}
	return rec
}
