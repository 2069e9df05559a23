package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/tradefeed/internal/protocol/frame"
	"github.com/francoispqt/gojay"
)

const DefaultPath = "packets.json"

// OutputError reports that the result could not be persisted.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output: write %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

type packetRecord frame.Packet

var _ gojay.MarshalerJSONObject = packetRecord{}

func (p packetRecord) IsNil() bool { return false }

func (p packetRecord) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("symbol", jsonText(p.Symbol))
	enc.StringKey("buysellindicator", jsonText(frame.Packet(p).SideString()))
	enc.IntKey("quantity", int(p.Quantity))
	enc.IntKey("price", int(p.Price))
	enc.IntKey("packetSequence", int(p.Sequence))
}

// jsonText makes raw wire text safe for gojay, which copies string bytes
// through unchecked: invalid UTF-8 and control characters become U+FFFD.
func jsonText(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return utf8.RuneError
		}
		return r
	}, s)
}

type packetRecords []frame.Packet

var _ gojay.MarshalerJSONArray = packetRecords{}

// an empty result still encodes as []
func (r packetRecords) IsNil() bool { return false }

func (r packetRecords) MarshalJSONArray(enc *gojay.Encoder) {
	for _, p := range r {
		enc.Object(packetRecord(p))
	}
}

// Encode writes packets as one JSON array, in the given order.
func Encode(w io.Writer, packets []frame.Packet) error {
	enc := gojay.NewEncoder(w)
	if err := enc.EncodeArray(packetRecords(packets)); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// WritePackets replaces path with the JSON encoding of packets. The file is
// written next to path first and renamed into place.
func WritePackets(path string, packets []frame.Packet) error {
	if path == "" {
		path = DefaultPath
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &OutputError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := Encode(tmp, packets); err != nil {
		_ = tmp.Close()
		cleanup()
		return &OutputError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &OutputError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &OutputError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &OutputError{Path: path, Err: err}
	}
	return nil
}
