package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/tradefeed/internal/protocol/frame"
	"github.com/danmuck/tradefeed/internal/testutil/testlog"
)

type jsonPacket struct {
	Symbol         string `json:"symbol"`
	BuySell        string `json:"buysellindicator"`
	Quantity       int32  `json:"quantity"`
	Price          int32  `json:"price"`
	PacketSequence int32  `json:"packetSequence"`
}

func TestEncodeFieldsAndOrder(t *testing.T) {
	testlog.Start(t)
	packets := []frame.Packet{
		{Symbol: "MSFT", Side: 'B', Quantity: 50, Price: 300, Sequence: 1},
		{Symbol: "AAPL", Side: 'S', Quantity: -4, Price: 120, Sequence: 2},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, packets); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got []jsonPacket
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid json: %v\n%s", err, buf.String())
	}
	want := []jsonPacket{
		{Symbol: "MSFT", BuySell: "B", Quantity: 50, Price: 300, PacketSequence: 1},
		{Symbol: "AAPL", BuySell: "S", Quantity: -4, Price: 120, PacketSequence: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("len got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d got=%+v want=%+v", i, got[i], want[i])
		}
	}
}

func TestEncodeEmptyIsArray(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Fatalf("empty output got=%q", got)
	}
}

func TestWritePacketsReplacesFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "packets.json")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := WritePackets(path, []frame.Packet{{Symbol: "META", Side: 'B', Sequence: 9}}); err != nil {
		t.Fatalf("write packets: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []jsonPacket
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].PacketSequence != 9 || got[0].Symbol != "META" {
		t.Fatalf("unexpected content: %+v", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestWritePacketsMissingDirIsOutputError(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "missing", "packets.json")
	err := WritePackets(path, nil)
	var outErr *OutputError
	if !errors.As(err, &outErr) || outErr.Path != path {
		t.Fatalf("expected OutputError, got %v", err)
	}
}

func TestEncodeReplacesInvalidText(t *testing.T) {
	testlog.Start(t)
	packets := []frame.Packet{
		{Symbol: "\xff\xfeZZ", Side: 'B', Sequence: 1},
		{Symbol: "A\x00\x1fB", Side: 0, Sequence: 2},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, packets); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Fatalf("output is not valid json:\n%q", buf.String())
	}
	var got []jsonPacket
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got[0].Symbol != "\uFFFDZZ" || got[0].BuySell != "B" {
		t.Fatalf("first record got=%+v", got[0])
	}
	if got[1].Symbol != "A\uFFFD\uFFFDB" || got[1].BuySell != "\uFFFD" {
		t.Fatalf("second record got=%+v", got[1])
	}
}
