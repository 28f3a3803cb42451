package allocation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/money"
)

func cents(v money.Cents) *money.Cents { return &v }

func TestInitialize(t *testing.T) {
	tests := []struct {
		name  string
		total money.Cents
		n     int
		want  []money.Cents
	}{
		{name: "even", total: 10000, n: 4, want: []money.Cents{2500, 2500, 2500, 2500}},
		{name: "remainder goes first", total: 1000, n: 3, want: []money.Cents{334, 333, 333}},
		{name: "single", total: 1234, n: 1, want: []money.Cents{1234}},
		{name: "zero total", total: 0, n: 2, want: []money.Cents{0, 0}},
		{name: "no participants", total: 1000, n: 0, want: []money.Cents{}},
		{name: "negative total", total: -1, n: 3, want: []money.Cents{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Initialize(tt.total, tt.n)
			assert.Equal(t, tt.want, s.Amounts())
			for _, e := range s.Entries {
				assert.False(t, e.Locked)
			}
			assert.NoError(t, s.Err())
		})
	}
}

func TestSingleUnlockedAbsorbsRemainder(t *testing.T) {
	s := Initialize(10000, 3)
	s = Apply(s, SetAmount{Index: 0, Value: cents(3000)})
	assert.Equal(t, []money.Cents{3000, 3500, 3500}, s.Amounts())

	s = Apply(s, SetAmount{Index: 1, Value: cents(3001)})
	assert.Equal(t, []money.Cents{3000, 3001, 3999}, s.Amounts())
	assert.True(t, s.Entries[0].Locked)
	assert.True(t, s.Entries[1].Locked)
	assert.False(t, s.Entries[2].Locked)
	assert.NoError(t, s.Err())
}

func TestOverAllocation(t *testing.T) {
	s := Initialize(5000, 3)
	s = Apply(s, SetAmount{Index: 0, Value: cents(6000)})

	err := s.Err()
	var over *OverAllocationError
	require.True(t, errors.As(err, &over))
	assert.Equal(t, money.Cents(1000), over.Excess)
	assert.Equal(t, "exceeds by $10.00", err.Error())

	// The edited entry keeps the typed value; the rest drop to zero.
	assert.Equal(t, []money.Cents{6000, 0, 0}, s.Amounts())
	assert.True(t, s.Entries[0].Locked)

	// The engine keeps accepting edits and recovers.
	s = Apply(s, SetAmount{Index: 0, Value: cents(2000)})
	assert.NoError(t, s.Err())
	assert.Equal(t, []money.Cents{2000, 1500, 1500}, s.Amounts())
}

func TestOverAllocation_ResolvedByUnlock(t *testing.T) {
	s := Initialize(5000, 3)
	s = Apply(s, SetAmount{Index: 0, Value: cents(3000)})
	s = Apply(s, SetAmount{Index: 1, Value: cents(3000)})
	require.Error(t, s.Err())
	assert.Equal(t, []money.Cents{3000, 3000, 0}, s.Amounts())

	s = Apply(s, ToggleLock{Index: 1})
	assert.NoError(t, s.Err())
	assert.Equal(t, []money.Cents{3000, 1000, 1000}, s.Amounts())
}

func TestRemainderTieBreak(t *testing.T) {
	s := Initialize(1000, 3)
	assert.Equal(t, []money.Cents{334, 333, 333}, s.Amounts())

	// Pinning the first participant moves the extra cent to the next
	// unlocked one in list order.
	s = Apply(s, SetAmount{Index: 0, Value: cents(300)})
	assert.Equal(t, []money.Cents{300, 350, 350}, s.Amounts())

	s = Apply(s, SetAmount{Index: 0, Value: cents(299)})
	assert.Equal(t, []money.Cents{299, 351, 350}, s.Amounts())
}

func TestLockUnlockRoundTrip(t *testing.T) {
	for _, idx := range []int{0, 1, 2} {
		start := Initialize(1000, 3)
		locked := Apply(start, ToggleLock{Index: idx})
		assert.True(t, locked.Entries[idx].Locked)
		assert.Equal(t, start.Entries[idx].Amount, locked.Entries[idx].Amount)
		assert.Equal(t, start.Total, locked.Sum())

		back := Apply(locked, ToggleLock{Index: idx})
		assert.Equal(t, start, back, "index %d", idx)
	}
}

func TestToggleLock_RebalancesOthers(t *testing.T) {
	s := Initialize(1000, 3)
	s = Apply(s, SetAmount{Index: 2, Value: cents(400)})
	assert.Equal(t, []money.Cents{300, 300, 400}, s.Amounts())

	// Locking participant 0 at its current amount leaves participant 1 as
	// the only unlocked entry.
	s = Apply(s, ToggleLock{Index: 0})
	assert.Equal(t, []money.Cents{300, 300, 400}, s.Amounts())

	s = Apply(s, SetTotal{Total: 1200})
	assert.Equal(t, []money.Cents{300, 500, 400}, s.Amounts())
}

func TestAllLocked(t *testing.T) {
	s := Initialize(1000, 2)
	s = Apply(s, ToggleLock{Index: 0})
	s = Apply(s, ToggleLock{Index: 1})
	assert.NoError(t, s.Err())
	assert.Equal(t, money.Cents(1000), s.Sum())

	// Lowering a pinned value with nothing left to absorb the difference
	// is surfaced, not silently fixed.
	s = Apply(s, SetAmount{Index: 1, Value: cents(400)})
	var under *UnderAllocationError
	require.True(t, errors.As(s.Err(), &under))
	assert.Equal(t, money.Cents(100), under.Missing)
	assert.Equal(t, []money.Cents{500, 400}, s.Amounts())
}

func TestSetAmount_NilAndNegative(t *testing.T) {
	s := Initialize(900, 3)
	s = Apply(s, SetAmount{Index: 1, Value: nil})
	assert.Equal(t, []money.Cents{450, 0, 450}, s.Amounts())
	assert.True(t, s.Entries[1].Locked)

	s = Apply(s, SetAmount{Index: 1, Value: cents(-50)})
	assert.Equal(t, money.Cents(0), s.Entries[1].Amount)
	assert.Equal(t, money.Cents(900), s.Sum())
}

func TestBlur(t *testing.T) {
	s := Initialize(900, 3)
	s = Apply(s, SetAmount{Index: 0, Value: cents(0)})
	assert.Equal(t, []money.Cents{0, 450, 450}, s.Amounts())

	// A locked zero is a deliberate value and survives blur.
	blurred := Apply(s, Blur{Index: 0})
	assert.Equal(t, s, blurred)

	s = Apply(s, ToggleLock{Index: 0})
	assert.Equal(t, []money.Cents{300, 300, 300}, s.Amounts())

	s.Entries[1].Amount = 0
	s = Apply(s, Blur{Index: 1})
	assert.Equal(t, []money.Cents{300, 300, 300}, s.Amounts())
	assert.False(t, s.Entries[1].Locked)
}

func TestOutOfRangeEventsAreNoOps(t *testing.T) {
	s := Initialize(1000, 2)
	for _, ev := range []Event{
		SetAmount{Index: 5, Value: cents(1)},
		SetAmount{Index: -1, Value: cents(1)},
		ToggleLock{Index: 2},
		Blur{Index: 9},
		SetTotal{Total: -10},
		nil,
	} {
		assert.Equal(t, s, Apply(s, ev))
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := Initialize(1000, 3)
	snapshot := s.clone()
	_ = Apply(s, SetAmount{Index: 0, Value: cents(100)})
	_ = Apply(s, ToggleLock{Index: 1})
	assert.Equal(t, snapshot, s)
}

func TestConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(7)
		total := money.Cents(rng.Intn(100000))
		s := Initialize(total, n)
		require.Equal(t, total, s.Sum())

		for step := 0; step < 30; step++ {
			var ev Event
			switch rng.Intn(4) {
			case 0:
				ev = SetAmount{Index: rng.Intn(n), Value: cents(money.Cents(rng.Intn(int(total)/n + 2)))}
			case 1:
				ev = ToggleLock{Index: rng.Intn(n)}
			case 2:
				ev = Blur{Index: rng.Intn(n)}
			default:
				total = money.Cents(rng.Intn(100000))
				ev = SetTotal{Total: total}
			}
			s = Apply(s, ev)
			for _, e := range s.Entries {
				require.GreaterOrEqual(t, e.Amount, money.Cents(0))
			}
			if s.Err() == nil {
				require.Equal(t, s.Total, s.Sum(), "run %d step %d event %#v", run, step, ev)
			}
		}
	}
}
