package feed

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/danmuck/tradefeed/internal/observability"
	"github.com/danmuck/tradefeed/internal/protocol/frame"
	"github.com/danmuck/tradefeed/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// MaxSequence returns the highest sequence in packets, or 0 when there is none.
func MaxSequence(packets []frame.Packet) int32 {
	var maxSeq int32
	for _, p := range packets {
		if p.Sequence > maxSeq {
			maxSeq = p.Sequence
		}
	}
	return maxSeq
}

// GapRange is an inclusive run of absent sequences.
type GapRange struct {
	First int32
	Last  int32
}

func (g GapRange) Len() int64 {
	return int64(g.Last) - int64(g.First) + 1
}

func (g GapRange) String() string {
	if g.First == g.Last {
		return strconv.FormatInt(int64(g.First), 10)
	}
	return fmt.Sprintf("%d-%d", g.First, g.Last)
}

// MissingRanges lists, ascending, the runs of sequences in [1, max] absent
// from packets. Work is bounded by len(packets), not by the max sequence.
func MissingRanges(packets []frame.Packet) (int32, []GapRange) {
	seqs := make([]int32, 0, len(packets))
	for _, p := range packets {
		if p.Sequence > 0 {
			seqs = append(seqs, p.Sequence)
		}
	}
	if len(seqs) == 0 {
		return 0, nil
	}
	slices.Sort(seqs)

	var gaps []GapRange
	next := int64(1)
	for _, seq := range seqs {
		if int64(seq) > next {
			gaps = append(gaps, GapRange{First: int32(next), Last: seq - 1})
		}
		if int64(seq) >= next {
			next = int64(seq) + 1
		}
	}
	return seqs[len(seqs)-1], gaps
}

// splitAddressable expands the part of gaps a resend request can name and
// returns the rest as ranges.
func splitAddressable(gaps []GapRange) ([]int32, []GapRange) {
	var addressable []int32
	var beyond []GapRange
	for _, g := range gaps {
		if g.First > frame.MaxResendSequence {
			beyond = append(beyond, g)
			continue
		}
		last := g.Last
		if last > frame.MaxResendSequence {
			beyond = append(beyond, GapRange{First: frame.MaxResendSequence + 1, Last: last})
			last = frame.MaxResendSequence
		}
		for seq := g.First; seq <= last; seq++ {
			addressable = append(addressable, seq)
		}
	}
	return addressable, beyond
}

// ResolveGaps asks for every missing sequence on its own channel. A failed
// resend is recorded and the loop moves on; only cancellation ends it early,
// in which case the remaining sequences are reported as failed. Sequences a
// resend request cannot address are reported once per range without dialing.
func (c *Client) ResolveGaps(ctx context.Context, packets []frame.Packet) ([]frame.Packet, []*ResendError) {
	maxSeq, gaps := MissingRanges(packets)
	if len(gaps) == 0 {
		return nil, nil
	}
	missing, beyond := splitAddressable(gaps)
	log.Info().
		Int("resendable", len(missing)).
		Int("unaddressable_ranges", len(beyond)).
		Int32("max_sequence", maxSeq).
		Msg("resolving gaps")

	recovered := make([]frame.Packet, 0, len(missing))
	var failures []*ResendError
	for i, seq := range missing {
		if err := c.pace(ctx); err != nil {
			for _, rest := range missing[i:] {
				failures = append(failures, &ResendError{Sequence: rest, Err: err})
			}
			observability.RecordResends(observability.OutcomeCanceled, int64(len(missing)-i))
			log.Warn().Err(err).Int("abandoned", len(missing)-i).Msg("gap resolution interrupted")
			break
		}

		p, err := c.Resend(ctx, seq)
		if err != nil {
			failures = append(failures, &ResendError{Sequence: seq, Err: err})
			observability.RecordResend(outcomeOf(err))
			log.Warn().Err(err).Int32("sequence", seq).Msg("resend failed")
			continue
		}
		recovered = append(recovered, p)
		observability.RecordResend(observability.OutcomeSuccess)
		observability.RecordFrame("resend")
		log.Debug().Int32("sequence", seq).Msg("resend recovered")
	}

	for _, g := range beyond {
		failures = append(failures, &ResendError{Sequence: g.First, Last: g.Last, Err: frame.ErrSequenceOutOfRange})
		observability.RecordResends(observability.OutcomeRange, g.Len())
		log.Warn().
			Int32("first", g.First).
			Int32("last", g.Last).
			Int64("count", g.Len()).
			Msg("sequences beyond resend range")
	}
	return recovered, failures
}

// Resend performs one single-packet exchange for seq.
func (c *Client) Resend(ctx context.Context, seq int32) (frame.Packet, error) {
	req, err := frame.ResendRequest(seq)
	if err != nil {
		return frame.Packet{}, err
	}
	var out frame.Packet
	err = c.exchange(ctx, req, func(ch session.Channel) error {
		b, err := ch.ReadExact(frame.PacketLen)
		if err != nil {
			return &ProtocolError{Op: "resend read", Err: err}
		}
		p, err := frame.DecodePacket(b)
		if err != nil {
			return &ProtocolError{Op: "resend decode", Err: err}
		}
		if p.Sequence != seq {
			return &ProtocolError{
				Op:  "resend decode",
				Err: fmt.Errorf("%w: want %d got %d", ErrSequenceMismatch, seq, p.Sequence),
			}
		}
		out = p
		return nil
	})
	return out, err
}

func (c *Client) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
