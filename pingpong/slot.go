package pingpong

import (
	"strconv"
	"sync/atomic"
)

// SlotID identifies one of the two slots of a session's region.
type SlotID int

const (
	// Slot0 is the lower half of the region, at offset 0.
	Slot0 SlotID = 0
	// Slot1 is the upper half of the region, at offset S.
	Slot1 SlotID = 1

	// NoSlot is returned alongside errors by methods that return a SlotID.
	NoSlot SlotID = -1
)

// String returns a human-readable representation of the slot id.
func (x SlotID) String() string {
	switch x {
	case Slot0:
		return "Slot0"
	case Slot1:
		return "Slot1"
	default:
		return "SlotID(" + strconv.Itoa(int(x)) + ")"
	}
}

func (x SlotID) valid() bool { return x == Slot0 || x == Slot1 }

func (x SlotID) other() SlotID { return 1 - x }

// SlotInfo is a point-in-time description of one slot.
type SlotInfo struct {
	ID    SlotID    `json:"id"`
	State SlotState `json:"state"`
	// Seq is the hand-off sequence number assigned when the slot last became
	// full, starting at 1. Zero means the slot has never been handed off.
	Seq uint64 `json:"seq"`
	// Base is the offset of the slot within the region.
	Base int `json:"base"`
	// Size is the slot size, S.
	Size int `json:"size"`
}

type slot struct {
	state slotState
	seq   atomic.Uint64
}
