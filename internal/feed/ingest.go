package feed

import (
	"context"
	"errors"

	"github.com/danmuck/tradefeed/internal/observability"
	"github.com/danmuck/tradefeed/internal/protocol/frame"
	"github.com/danmuck/tradefeed/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// StreamAll requests the full stream and decodes frames until the server
// closes on a frame boundary. On failure the packets decoded so far are
// returned with the error.
func (c *Client) StreamAll(ctx context.Context) ([]frame.Packet, error) {
	packets := make([]frame.Packet, 0, 64)
	err := c.exchange(ctx, frame.StreamAllRequest(), func(ch session.Channel) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := ch.ReadExact(frame.PacketLen)
			if errors.Is(err, session.ErrCleanEOF) {
				return nil
			}
			if err != nil {
				return &ProtocolError{Op: "stream read", Err: err}
			}
			p, err := frame.DecodePacket(b)
			if err != nil {
				return &ProtocolError{Op: "stream decode", Err: err}
			}
			packets = append(packets, p)
			observability.RecordFrame("stream")
			log.Trace().
				Str("symbol", p.Symbol).
				Str("side", p.SideString()).
				Int32("quantity", p.Quantity).
				Int32("price", p.Price).
				Int32("sequence", p.Sequence).
				Msg("stream frame")
		}
	})
	if err != nil {
		observability.RecordStreamFetch(outcomeOf(err))
		return packets, err
	}
	observability.RecordStreamFetch(observability.OutcomeSuccess)
	log.Debug().Int("packets", len(packets)).Str("addr", c.cfg.Addr()).Msg("stream complete")
	return packets, nil
}

func outcomeOf(err error) string {
	var connErr *ConnectionError
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCanceled
	case errors.Is(err, frame.ErrSequenceOutOfRange):
		return observability.OutcomeRange
	case errors.As(err, &connErr):
		return observability.OutcomeConnect
	default:
		return observability.OutcomeProtocol
	}
}
