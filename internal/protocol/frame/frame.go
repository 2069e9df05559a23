package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	RequestLen = 2
	PacketLen  = 17

	// MaxResendSequence is the largest sequence a one-byte resend request can address.
	MaxResendSequence = 255
)

// CallType is the first byte of every request.
type CallType uint8

const (
	CallStreamAll CallType = 1
	CallResend    CallType = 2
)

var (
	ErrInvalidFrameLength = errors.New("frame: invalid packet frame length")
	ErrSequenceOutOfRange = errors.New("frame: sequence not addressable by resend request")
)

// Request is the fixed two byte client request.
type Request struct {
	CallType CallType
	Sequence uint8
}

// Packet is one decoded trade frame. Values are kept exactly as sent.
type Packet struct {
	Symbol   string
	Side     byte
	Quantity int32
	Price    int32
	Sequence int32
}

func StreamAllRequest() Request {
	return Request{CallType: CallStreamAll}
}

// ResendRequest builds a single-packet resend request. Sequences outside the
// one-byte wire range are rejected rather than truncated.
func ResendRequest(seq int32) (Request, error) {
	if seq < 0 || seq > MaxResendSequence {
		return Request{}, fmt.Errorf("%w: %d", ErrSequenceOutOfRange, seq)
	}
	return Request{CallType: CallResend, Sequence: uint8(seq)}, nil
}

func (r Request) Bytes() []byte {
	return EncodeRequest(r.CallType, r.Sequence)
}

func EncodeRequest(callType CallType, seq uint8) []byte {
	return []byte{byte(callType), seq}
}

func DecodePacket(b []byte) (Packet, error) {
	if len(b) != PacketLen {
		return Packet{}, fmt.Errorf("%w: %d", ErrInvalidFrameLength, len(b))
	}
	return Packet{
		Symbol:   string(b[0:4]),
		Side:     b[4],
		Quantity: int32(binary.BigEndian.Uint32(b[5:9])),
		Price:    int32(binary.BigEndian.Uint32(b[9:13])),
		Sequence: int32(binary.BigEndian.Uint32(b[13:17])),
	}, nil
}

// EncodePacket is the inverse of DecodePacket. Symbols longer than four bytes
// are cut, shorter ones are padded with spaces.
func EncodePacket(p Packet) []byte {
	buf := make([]byte, PacketLen)
	copy(buf[0:4], "    ")
	copy(buf[0:4], p.Symbol)
	buf[4] = p.Side
	binary.BigEndian.PutUint32(buf[5:9], uint32(p.Quantity))
	binary.BigEndian.PutUint32(buf[9:13], uint32(p.Price))
	binary.BigEndian.PutUint32(buf[13:17], uint32(p.Sequence))
	return buf
}

func WritePacket(w io.Writer, p Packet) error {
	_, err := w.Write(EncodePacket(p))
	return err
}

func (p Packet) SideString() string {
	return string([]byte{p.Side})
}
