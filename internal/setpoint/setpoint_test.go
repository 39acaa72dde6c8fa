package setpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/nvm"
)

func TestSaveThenLoad(t *testing.T) {
	m := nvm.NewMemStore()
	s := New(m)

	require.NoError(t, s.Save(57))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, fan.Percent(57), got)
	assert.Equal(t, byte(57), m.Image[nvm.AddrSetpoint])
}

func TestSaveSkipsUnchanged(t *testing.T) {
	m := nvm.NewMemStore()
	s := New(m)

	require.NoError(t, s.Save(30))
	require.NoError(t, s.Save(30))
	require.NoError(t, s.Save(30))
	assert.Equal(t, 1, m.Writes)
}

func TestLoadAcceptsAnyByte(t *testing.T) {
	m := nvm.NewMemStore()
	s := New(m)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, fan.Percent(nvm.Erased), got, "erased image loads as 255")

	m.Image[nvm.AddrSetpoint] = 150
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, fan.Percent(150), got)
}

func TestSaveDoesNotTouchLegacyChecksum(t *testing.T) {
	m := nvm.NewMemStore()
	require.NoError(t, New(m).Save(12))
	assert.Equal(t, nvm.Erased, m.Image[nvm.AddrLegacyChecksum])
}

func TestSaveError(t *testing.T) {
	m := nvm.NewMemStore()
	m.WriteError = errors.New("worn out")

	err := New(m).Save(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worn out")
}
