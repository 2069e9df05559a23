package feed

import (
	"sort"

	"github.com/danmuck/tradefeed/internal/protocol/frame"
)

// Report is the sequenced packet set of a run.
type Report struct {
	Packets     []frame.Packet
	MaxSequence int32
	// Gaps are the runs in [1, MaxSequence] still absent after resend.
	Gaps []GapRange
}

func (r Report) Complete() bool {
	return len(r.Gaps) == 0
}

// MissingCount is the number of sequences covered by Gaps.
func (r Report) MissingCount() int64 {
	var n int64
	for _, g := range r.Gaps {
		n += g.Len()
	}
	return n
}

// Sequence merges stream and recovered packets, stable sorted by sequence.
// Equal sequences keep arrival order, stream before recovered. Inputs are not modified.
func Sequence(stream, recovered []frame.Packet) Report {
	merged := make([]frame.Packet, 0, len(stream)+len(recovered))
	merged = append(merged, stream...)
	merged = append(merged, recovered...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Sequence < merged[j].Sequence
	})
	maxSeq, gaps := MissingRanges(merged)
	return Report{Packets: merged, MaxSequence: maxSeq, Gaps: gaps}
}
