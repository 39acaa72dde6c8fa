package fan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vent-controller/internal/gpio"
)

func TestDiscretizeRanges(t *testing.T) {
	tests := []struct {
		lo, hi Percent
		want   Level
	}{
		{0, 0, Off},
		{1, 20, VeryLow},
		{21, 40, Low},
		{41, 60, Mid},
		{61, 80, High},
		{81, 99, Full},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			for p := int(tt.lo); p <= int(tt.hi); p++ {
				assert.Equal(t, tt.want, Discretize(Percent(p)), "percent %d", p)
			}
		})
	}
}

func TestDiscretizeBoundaries(t *testing.T) {
	assert.Equal(t, VeryLow, Discretize(20))
	assert.Equal(t, Low, Discretize(21))
	assert.Equal(t, High, Discretize(80))
	assert.Equal(t, Full, Discretize(81))
}

func TestDiscretizeAboveDomain(t *testing.T) {
	// Stored bytes are replayed unchecked.
	for _, p := range []Percent{100, 150, 255} {
		assert.Equal(t, Full, Discretize(p), "percent %d", p)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "OFF", Off.String())
	assert.Equal(t, "MID", Mid.String())
	assert.Equal(t, "FULL", Full.String())
	assert.Equal(t, "Level(9)", Level(9).String())
}

func TestRowMid(t *testing.T) {
	row, ok := Row(Mid)
	require.True(t, ok)
	assert.Equal(t, [RelayChannels]gpio.Drive{
		gpio.Inactive, gpio.Active, gpio.Inactive, gpio.Inactive, gpio.Active,
	}, row)
}

func TestRowOff(t *testing.T) {
	row, ok := Row(Off)
	require.True(t, ok)
	for i, d := range row {
		assert.Equal(t, gpio.Inactive, d, "channel %d", i+1)
	}
}

func TestRowsDistinct(t *testing.T) {
	seen := map[[RelayChannels]gpio.Drive]Level{}
	for l := Level(0); l < NumLevels; l++ {
		row, ok := Row(l)
		require.True(t, ok)
		if prev, dup := seen[row]; dup {
			t.Errorf("levels %s and %s share a relay row", prev, l)
		}
		seen[row] = l
	}
}

func TestRowOutOfRange(t *testing.T) {
	_, ok := Row(NumLevels)
	assert.False(t, ok)
}

func TestApplyMid(t *testing.T) {
	w := gpio.NewFakeWriter()
	NewDriver(w).Apply(Mid)

	assert.Equal(t, gpio.Inactive, w.States[1])
	assert.Equal(t, gpio.Active, w.States[2])
	assert.Equal(t, gpio.Inactive, w.States[3])
	assert.Equal(t, gpio.Inactive, w.States[4])
	assert.Equal(t, gpio.Active, w.States[5])
	assert.Len(t, w.Writes, RelayChannels)
}

func TestApplyNeverWritesSpare(t *testing.T) {
	w := gpio.NewFakeWriter()
	d := NewDriver(w)
	for l := Level(0); l < NumLevels; l++ {
		d.Apply(l)
	}
	for _, wc := range w.Writes {
		assert.NotEqual(t, gpio.NumChannels, wc.Channel, "spare channel written")
	}
}

func TestApplyIdempotent(t *testing.T) {
	w := gpio.NewFakeWriter()
	d := NewDriver(w)

	d.Apply(High)
	first := w.States
	firstWrites := append([]gpio.WriteCall(nil), w.Writes...)

	w.Reset()
	d.Apply(High)
	assert.Equal(t, first, w.States)
	assert.Equal(t, firstWrites, w.Writes)
}

func TestApplyOutOfRangeIsNoop(t *testing.T) {
	w := gpio.NewFakeWriter()
	NewDriver(w).Apply(Level(6))
	NewDriver(w).Apply(Level(200))
	assert.Empty(t, w.Writes)
}

type failingWriter struct {
	gpio.FakeWriter
	failChannel int
}

func (f *failingWriter) Write(channel int, d gpio.Drive) error {
	if channel == f.failChannel {
		return errors.New("line busy")
	}
	return f.FakeWriter.Write(channel, d)
}

func TestApplyContinuesPastWriteError(t *testing.T) {
	w := &failingWriter{failChannel: 2}
	NewDriver(w).Apply(Full)

	assert.Len(t, w.Writes, RelayChannels-1)
	assert.Equal(t, gpio.Active, w.States[4])
	assert.Equal(t, gpio.Active, w.States[5])
}
