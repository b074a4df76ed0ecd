package pingpong

import (
	"sync/atomic"
)

// Stats is a snapshot of a session's counters, see Session.Stats.
type Stats struct {
	// Submissions is the number of transfers accepted by the channel.
	Submissions uint64 `json:"submissions"`
	// Completions is the number of successful transfer completions.
	Completions uint64 `json:"completions"`
	// SubmitFailures is the number of transfers the channel rejected.
	SubmitFailures uint64 `json:"submit_failures"`
	// CompletionFailures is the number of transfers completed with an error.
	CompletionFailures uint64 `json:"completion_failures"`
	// ShortTransfers counts completions that delivered less than requested.
	ShortTransfers uint64 `json:"short_transfers"`
	// Bytes is the total number of bytes delivered into the region.
	Bytes uint64 `json:"bytes"`
	// HandOffs counts FILLING → FULL transitions, per slot.
	HandOffs [2]uint64 `json:"hand_offs"`
	// ProducerWaits counts the times the engine suspended, waiting for the
	// consumer to release a slot.
	ProducerWaits uint64 `json:"producer_waits"`
	// Wakeups counts broadcasts on the session's wait queue.
	Wakeups uint64 `json:"wakeups"`
	// InterruptedWaits counts producer waits aborted by Session.Close.
	InterruptedWaits uint64 `json:"interrupted_waits"`
	// Acknowledgments counts acknowledgments that released a slot.
	Acknowledgments uint64 `json:"acknowledgments"`
	// NoopAcknowledgments counts acknowledgments of slots that were not full
	// or claimed.
	NoopAcknowledgments uint64 `json:"noop_acknowledgments"`
	// Stalls counts the times the stream stalled.
	Stalls uint64 `json:"stalls"`
	// Restarts counts the times a stalled stream was re-armed.
	Restarts uint64 `json:"restarts"`
}

// HandOffTotal returns the sum of HandOffs.
func (x Stats) HandOffTotal() uint64 {
	return x.HandOffs[0] + x.HandOffs[1]
}

type counters struct {
	submissions         atomic.Uint64
	completions         atomic.Uint64
	submitFailures      atomic.Uint64
	completionFailures  atomic.Uint64
	shortTransfers      atomic.Uint64
	bytes               atomic.Uint64
	handOffs            [2]atomic.Uint64
	producerWaits       atomic.Uint64
	wakeups             atomic.Uint64
	interruptedWaits    atomic.Uint64
	acknowledgments     atomic.Uint64
	noopAcknowledgments atomic.Uint64
	stalls              atomic.Uint64
	restarts            atomic.Uint64
}

func (x *counters) snapshot() Stats {
	return Stats{
		Submissions:         x.submissions.Load(),
		Completions:         x.completions.Load(),
		SubmitFailures:      x.submitFailures.Load(),
		CompletionFailures:  x.completionFailures.Load(),
		ShortTransfers:      x.shortTransfers.Load(),
		Bytes:               x.bytes.Load(),
		HandOffs:            [2]uint64{x.handOffs[0].Load(), x.handOffs[1].Load()},
		ProducerWaits:       x.producerWaits.Load(),
		Wakeups:             x.wakeups.Load(),
		InterruptedWaits:    x.interruptedWaits.Load(),
		Acknowledgments:     x.acknowledgments.Load(),
		NoopAcknowledgments: x.noopAcknowledgments.Load(),
		Stalls:              x.stalls.Load(),
		Restarts:            x.restarts.Load(),
	}
}
