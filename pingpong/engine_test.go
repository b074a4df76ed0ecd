package pingpong

import (
	"testing"

	"github.com/joeycumines/go-pingpong/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_handOff_seq(t *testing.T) {
	s := &Session{
		notifier: notify.Disabled(),
		queue:    newWaitQueue(),
		slotSize: 8,
	}
	s.slots[Slot0].state.Store(StateFilling)
	s.slots[Slot1].state.Store(StateProcessed)

	s.handOff(Slot0)
	require.Equal(t, StateFull, s.slots[Slot0].state.Load())
	assert.Equal(t, uint64(1), s.slots[Slot0].seq.Load())
	assert.Equal(t, uint64(1), s.seq)

	// a slot that is not filling keeps its seq, and the counter does not move
	s.handOff(Slot1)
	assert.Equal(t, StateProcessed, s.slots[Slot1].state.Load())
	assert.Zero(t, s.slots[Slot1].seq.Load())
	assert.Equal(t, uint64(1), s.seq)

	s.handOff(Slot0)
	assert.Equal(t, uint64(1), s.slots[Slot0].seq.Load())
	assert.Equal(t, uint64(1), s.seq)

	s.slots[Slot1].state.Store(StateFilling)
	s.handOff(Slot1)
	assert.Equal(t, StateFull, s.slots[Slot1].state.Load())
	assert.Equal(t, uint64(2), s.slots[Slot1].seq.Load())
	assert.Equal(t, [2]uint64{1, 1}, s.Stats().HandOffs)
}
