package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func TestGate_ClearBeforeFirstRecord(t *testing.T) {
	gate := NewGate(10 * time.Second)

	assert.True(t, gate.IsClear(at(0)))
	assert.Zero(t, gate.Remaining(at(0)))
	assert.Equal(t, 10*time.Second, gate.Interval())
	_, recorded := gate.LastDispatch()
	assert.False(t, recorded)
}

func TestGate_SuppressesUntilInterval(t *testing.T) {
	gate := NewGate(10 * time.Second)
	gate.Record(at(0))

	assert.False(t, gate.IsClear(at(5)))
	assert.Equal(t, 5*time.Second, gate.Remaining(at(5)))
	assert.False(t, gate.IsClear(at(0).Add(10*time.Second-time.Nanosecond)))
	assert.True(t, gate.IsClear(at(10)), "boundary is inclusive")
	assert.True(t, gate.IsClear(at(11)))
}

func TestGate_RecordOverwrites(t *testing.T) {
	gate := NewGate(10 * time.Second)
	gate.Record(at(0))
	gate.Record(at(12))

	assert.False(t, gate.IsClear(at(20)))
	last, recorded := gate.LastDispatch()
	assert.True(t, recorded)
	assert.Equal(t, at(12), last)
}

func TestGate_ZeroIntervalAlwaysClear(t *testing.T) {
	gate := NewGate(0)
	gate.Record(at(3))

	assert.True(t, gate.IsClear(at(3)))
}
