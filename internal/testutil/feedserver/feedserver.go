// Package feedserver runs an in-process exchange speaking the trade packet protocol.
package feedserver

import (
	"io"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/tradefeed/internal/protocol/frame"
)

// Script drives what the server answers.
type Script struct {
	// Packets is the full set the server knows about.
	Packets []frame.Packet
	// Drop lists sequences left out of the stream-all response.
	Drop []int32
	// FailResend lists sequences whose resend connection is closed without a frame.
	FailResend []int32
	// Tail is written raw after the streamed frames, e.g. a partial frame.
	Tail []byte
	// WrongResend answers resend requests with the packet of another sequence.
	WrongResend map[int32]int32
	// Stall accepts the request and never answers; the connection is held
	// until the client closes it.
	Stall bool
}

type Server struct {
	ln     net.Listener
	script Script
	bySeq  map[int32]frame.Packet
	drop   map[int32]bool
	fail   map[int32]bool

	mu       sync.Mutex
	requests []frame.Request
	wg       sync.WaitGroup
}

// Start listens on a loopback port and serves until the test ends.
func Start(t testing.TB, script Script) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("feedserver listen: %v", err)
	}
	s := &Server{
		ln:     ln,
		script: script,
		bySeq:  make(map[int32]frame.Packet, len(script.Packets)),
		drop:   toSet(script.Drop),
		fail:   toSet(script.FailResend),
	}
	for _, p := range script.Packets {
		s.bySeq[p.Sequence] = p
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Requests returns every request received, in arrival order.
func (s *Server) Requests() []frame.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frame.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.handle(conn)
	}
}

// handle answers one request per connection, then closes it.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	raw := make([]byte, frame.RequestLen)
	if _, err := io.ReadFull(conn, raw); err != nil {
		return
	}
	req := frame.Request{CallType: frame.CallType(raw[0]), Sequence: raw[1]}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.script.Stall {
		_, _ = io.Copy(io.Discard, conn)
		return
	}

	switch req.CallType {
	case frame.CallStreamAll:
		for _, p := range s.script.Packets {
			if s.drop[p.Sequence] {
				continue
			}
			if err := frame.WritePacket(conn, p); err != nil {
				return
			}
		}
		if len(s.script.Tail) > 0 {
			_, _ = conn.Write(s.script.Tail)
		}
	case frame.CallResend:
		seq := int32(req.Sequence)
		if s.fail[seq] {
			return
		}
		if other, ok := s.script.WrongResend[seq]; ok {
			seq = other
		}
		if p, ok := s.bySeq[seq]; ok {
			_ = frame.WritePacket(conn, p)
		}
	}
}

// Packets builds n packets with sequences 1..n.
func Packets(n int) []frame.Packet {
	out := make([]frame.Packet, 0, n)
	symbols := []string{"MSFT", "AAPL", "AMZN", "META"}
	for i := 1; i <= n; i++ {
		side := byte('B')
		if i%2 == 0 {
			side = 'S'
		}
		out = append(out, frame.Packet{
			Symbol:   symbols[i%len(symbols)],
			Side:     side,
			Quantity: int32(10 * i),
			Price:    int32(100 + i),
			Sequence: int32(i),
		})
	}
	return out
}

func toSet(in []int32) map[int32]bool {
	out := make(map[int32]bool, len(in))
	for _, v := range in {
		out[v] = true
	}
	return out
}
