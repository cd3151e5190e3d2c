package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkralj/hepmeter/pkg/logger"
)

func newBoltStore(t *testing.T) Store {
	t.Helper()

	s, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "state.db"),
	}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

// storeFactories lets every behavioural test run against both
// implementations.
var storeFactories = map[string]func(t *testing.T) Store{
	"bolt":   newBoltStore,
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
}

func TestLoadAbsentReturnsZeroState(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			state, err := s.Load("omm-1")
			require.NoError(t, err)
			require.NotNil(t, state)

			assert.Zero(t, state.ConsumptionTotal)
			assert.Zero(t, state.ExportTotal)
			assert.Empty(t, state.ImportedMonths)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			in := &State{
				ConsumptionTotal: 1234.5,
				ExportTotal:      67.25,
				ImportedMonths:   []string{"01.2024", "02.2024"},
			}
			require.NoError(t, s.Save("omm-1", in))

			out, err := s.Load("omm-1")
			require.NoError(t, err)

			assert.Equal(t, in.ConsumptionTotal, out.ConsumptionTotal)
			assert.Equal(t, in.ExportTotal, out.ExportTotal)
			assert.Equal(t, in.ImportedMonths, out.ImportedMonths)
		})
	}
}

func TestStatesAreKeyedByID(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			require.NoError(t, s.Save("omm-1", &State{ConsumptionTotal: 10}))
			require.NoError(t, s.Save("omm-2", &State{ConsumptionTotal: 20}))

			first, err := s.Load("omm-1")
			require.NoError(t, err)
			second, err := s.Load("omm-2")
			require.NoError(t, err)

			assert.Equal(t, 10.0, first.ConsumptionTotal)
			assert.Equal(t, 20.0, second.ConsumptionTotal)
		})
	}
}

func TestEmptyIDRejected(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			_, err := s.Load("")
			assert.ErrorIs(t, err, ErrEmptyID)

			err = s.Save("", &State{})
			assert.ErrorIs(t, err, ErrEmptyID)
		})
	}
}

func TestNilStateRejected(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			err := s.Save("omm-1", nil)
			assert.ErrorIs(t, err, ErrNilState)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()

	in := &State{ImportedMonths: []string{"01.2024"}}
	require.NoError(t, s.Save("omm-1", in))

	// Mutating the caller's state must not leak into the store.
	in.ImportedMonths[0] = "12.2099"

	out, err := s.Load("omm-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"01.2024"}, out.ImportedMonths)
}

func TestBoltStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)

	require.NoError(t, s.Save("omm-1", &State{
		ConsumptionTotal: 42,
		ImportedMonths:   []string{"03.2024"},
	}))
	require.NoError(t, s.Close())

	reopened, err := New(Config{DBPath: path}, logger.Noop())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	state, err := reopened.Load("omm-1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, state.ConsumptionTotal)
	assert.Equal(t, []string{"03.2024"}, state.ImportedMonths)
}

func TestStateHelpers(t *testing.T) {
	state := &State{}

	assert.False(t, state.HasMonth("01.2024"))

	state.AddMonth("01.2024")
	state.AddMonth("01.2024")
	state.AddMonth("02.2024")

	assert.True(t, state.HasMonth("01.2024"))
	assert.Equal(t, []string{"01.2024", "02.2024"}, state.ImportedMonths)

	clone := state.Clone()
	clone.AddMonth("03.2024")
	assert.False(t, state.HasMonth("03.2024"))
}
