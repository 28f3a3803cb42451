package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/splitledger/internal/allocation"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// AllocationService runs the allocation engine for clients editing a split.
// It holds no state: every call carries the current allocation.
type AllocationService struct {
	metrics *metrics.Metrics
}

var _ apiconnect.AllocationServiceHandler = (*AllocationService)(nil)

// NewAllocationService creates an AllocationService. A nil m records into
// unregistered metrics.
func NewAllocationService(m *metrics.Metrics) *AllocationService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &AllocationService{metrics: m}
}

// Initialize starts an allocation of total over the consumers, or restores
// one from previously saved splits.
func (s *AllocationService) Initialize(ctx context.Context, req *connect.Request[api.InitializeRequest]) (*connect.Response[api.InitializeResponse], error) {
	total, ok := money.FromFloat(req.Msg.Total)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("total must be a number"))
	}

	var state allocation.State
	if len(req.Msg.InitialSplits) > 0 {
		state = allocation.Restore(total, req.Msg.Consumers, req.Msg.InitialSplits)
	} else {
		state = allocation.Initialize(total, len(req.Msg.Consumers))
	}

	return connect.NewResponse(&api.InitializeResponse{
		State:  toWireState(state),
		Splits: allocation.ToSplitRecords(state, req.Msg.Consumers),
		Error:  s.check(state),
	}), nil
}

// Apply runs one event against the given state.
func (s *AllocationService) Apply(ctx context.Context, req *connect.Request[api.ApplyRequest]) (*connect.Response[api.ApplyResponse], error) {
	if req.Msg.State == nil || req.Msg.Event == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("state and event required"))
	}
	state, err := fromWireState(req.Msg.State)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	consumers := req.Msg.Consumers
	if len(consumers) > 0 && len(consumers) != len(state.Entries) {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%d consumers for %d entries", len(consumers), len(state.Entries)))
	}
	if len(consumers) == 0 {
		consumers = nil
	}

	ev, err := fromWireEvent(req.Msg.Event)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	next := allocation.Apply(state, ev)
	s.metrics.AllocationEvents.WithLabelValues(req.Msg.Event.Kind).Inc()

	return connect.NewResponse(&api.ApplyResponse{
		State:  toWireState(next),
		Splits: allocation.ToSplitRecords(next, consumers),
		Error:  s.check(next),
	}), nil
}

// EvenSplit divides an amount equally among consumers.
func (s *AllocationService) EvenSplit(ctx context.Context, req *connect.Request[api.EvenSplitRequest]) (*connect.Response[api.EvenSplitResponse], error) {
	amount, ok := money.FromFloat(req.Msg.Amount)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("amount must be a number"))
	}
	splits := allocation.EvenSplit(amount, req.Msg.Consumers)
	if splits == nil {
		splits = []api.SplitRecord{}
	}
	return connect.NewResponse(&api.EvenSplitResponse{Splits: splits}), nil
}

// check returns the state's validation message and counts it.
func (s *AllocationService) check(state allocation.State) string {
	err := state.Err()
	if err == nil {
		return ""
	}
	var over *allocation.OverAllocationError
	reason := "under"
	if errors.As(err, &over) {
		reason = "over"
	}
	s.metrics.AllocationErrors.WithLabelValues(reason).Inc()
	slog.Debug("allocation unbalanced", "reason", reason, "error", err)
	return err.Error()
}

func toWireState(s allocation.State) *api.AllocationState {
	out := &api.AllocationState{
		Total:   s.Total.Float64(),
		Entries: make([]api.AllocationEntry, len(s.Entries)),
	}
	for i, e := range s.Entries {
		out.Entries[i] = api.AllocationEntry{Amount: e.Amount.Float64(), Locked: e.Locked}
	}
	return out
}

func fromWireState(w *api.AllocationState) (allocation.State, error) {
	total, ok := money.FromFloat(w.Total)
	if !ok || total < 0 {
		return allocation.State{}, fmt.Errorf("invalid total %v", w.Total)
	}
	s := allocation.State{Total: total, Entries: make([]allocation.Entry, len(w.Entries))}
	for i, e := range w.Entries {
		amount, ok := money.FromFloat(e.Amount)
		if !ok || amount < 0 {
			return allocation.State{}, fmt.Errorf("entry %d: invalid amount %v", i, e.Amount)
		}
		s.Entries[i] = allocation.Entry{Amount: amount, Locked: e.Locked}
	}
	return s, nil
}

func fromWireEvent(w *api.AllocationEvent) (allocation.Event, error) {
	var value *money.Cents
	if w.Value != nil {
		c, ok := money.FromFloat(*w.Value)
		if !ok {
			return nil, fmt.Errorf("event value must be a number")
		}
		value = &c
	}

	switch w.Kind {
	case api.EventSetAmount:
		return allocation.SetAmount{Index: w.Index, Value: value}, nil
	case api.EventToggleLock:
		return allocation.ToggleLock{Index: w.Index}, nil
	case api.EventBlur:
		return allocation.Blur{Index: w.Index}, nil
	case api.EventSetTotal:
		if value == nil {
			return nil, fmt.Errorf("set_total requires a value")
		}
		return allocation.SetTotal{Total: *value}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", w.Kind)
	}
}
