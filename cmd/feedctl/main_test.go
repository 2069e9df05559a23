package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/danmuck/tradefeed/internal/testutil/feedserver"
	"github.com/danmuck/tradefeed/internal/testutil/testlog"
)

type outputRecord struct {
	Symbol         string `json:"symbol"`
	BuySell        string `json:"buysellindicator"`
	PacketSequence int32  `json:"packetSequence"`
}

func readOutput(t *testing.T, path string) []outputRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out []outputRecord
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return out
}

func runAgainst(t *testing.T, srv *feedserver.Server, extra ...string) (int, string, string) {
	t.Helper()
	dir := t.TempDir()
	outPath := filepath.Join(dir, "packets.json")
	args := append([]string{"-output", outPath, "-log-level", "debug"}, extra...)
	args = append(args, srv.Host(), strconv.Itoa(srv.Port()))
	var stdout bytes.Buffer
	code := run(context.Background(), args, &stdout, io.Discard)
	return code, outPath, stdout.String()
}

func TestRunCompleteFeed(t *testing.T) {
	testlog.Start(t)
	srv := feedserver.Start(t, feedserver.Script{
		Packets: feedserver.Packets(6),
		Drop:    []int32{2, 5},
	})
	code, outPath, stdout := runAgainst(t, srv)
	if code != exitOK {
		t.Fatalf("exit code got=%d", code)
	}
	if !strings.Contains(stdout, "wrote 6 packets") {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
	records := readOutput(t, outPath)
	for i, rec := range records {
		if rec.PacketSequence != int32(i+1) {
			t.Fatalf("record %d has sequence %d", i, rec.PacketSequence)
		}
	}
	if len(records) != 6 {
		t.Fatalf("record count got=%d", len(records))
	}
}

func TestRunPersistentGapStillWritesOutput(t *testing.T) {
	testlog.Start(t)
	srv := feedserver.Start(t, feedserver.Script{
		Packets:    feedserver.Packets(5),
		Drop:       []int32{3},
		FailResend: []int32{3},
	})
	metricsPath := filepath.Join(t.TempDir(), "feed.prom")
	code, outPath, _ := runAgainst(t, srv, "-metrics", metricsPath)
	if code != exitProblem {
		t.Fatalf("exit code got=%d", code)
	}
	records := readOutput(t, outPath)
	if len(records) != 4 {
		t.Fatalf("expected 4 recovered records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.PacketSequence == 3 {
			t.Fatalf("sequence 3 should be missing")
		}
	}
	if _, err := os.Stat(metricsPath); err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
}

func TestRunStreamProtocolErrorWritesNothing(t *testing.T) {
	testlog.Start(t)
	srv := feedserver.Start(t, feedserver.Script{Tail: make([]byte, 10)})
	code, outPath, _ := runAgainst(t, srv)
	if code != exitProblem {
		t.Fatalf("exit code got=%d", code)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatalf("output should not exist after a failed stream: %v", err)
	}
}

func TestRunUsageError(t *testing.T) {
	testlog.Start(t)
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"only-host"}, io.Discard, &stderr); code != exitProblem {
		t.Fatalf("exit code got=%d", code)
	}
	if !strings.Contains(stderr.String(), "usage") {
		t.Fatalf("expected usage text, got %q", stderr.String())
	}
}
