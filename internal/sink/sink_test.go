package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/kafka-go"

	"github.com/efreitasn/matchbook/internal/domain"
)

const testScale = domain.PriceScale(2)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestTrades() []*domain.Trade {
	return []*domain.Trade{
		{TradeID: "t-1", Symbol: "XYZ", Price: 101, Quantity: 5, BuyerID: "EE", SellerID: "AA", BuyOrderID: 9, SellOrderID: 1, ExecutedAt: baseTime},
		{TradeID: "t-2", Symbol: "XYZ", Price: 101, Quantity: 5, BuyerID: "EE", SellerID: "CC", BuyOrderID: 9, SellOrderID: 3, ExecutedAt: baseTime},
		{TradeID: "t-3", Symbol: "XYZ", Price: 10250, Quantity: 40, BuyerID: "EE", SellerID: "DD", BuyOrderID: 9, SellOrderID: 4, ExecutedAt: baseTime},
	}
}

func TestParseFileMode(t *testing.T) {
	for in, want := range map[string]FileMode{"truncate": FileModeTruncate, "APPEND": FileModeAppend, " append ": FileModeAppend} {
		got, err := ParseFileMode(in)
		if err != nil || got != want {
			t.Errorf("ParseFileMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFileMode("w+"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestFileSink_Truncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape.txt")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileSink(path, FileModeTruncate, testScale)
	if err := s.WriteTrades(context.Background(), newTestTrades()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "Price: 1.01, Quantity: 5\nPrice: 1.01, Quantity: 5\nPrice: 102.50, Quantity: 40\n"
	if string(got) != want {
		t.Errorf("file content:\n%q\nwant:\n%q", got, want)
	}
}

func TestFileSink_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape.txt")
	s := NewFileSink(path, FileModeAppend, testScale)
	trades := newTestTrades()

	for i := 0; i < 2; i++ {
		if err := s.WriteTrades(context.Background(), trades[:1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, _ := os.ReadFile(path)
	if string(got) != "Price: 1.01, Quantity: 5\nPrice: 1.01, Quantity: 5\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestFileSink_EmptyTapeCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape.txt")
	if err := NewFileSink(path, FileModeTruncate, testScale).WriteTrades(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected empty file, got %v, %v", info, err)
	}
}

func TestFileSink_OpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "tape.txt")
	if err := NewFileSink(path, FileModeTruncate, testScale).WriteTrades(context.Background(), newTestTrades()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	if err := NewLogSink(logger, testScale).WriteTrades(context.Background(), newTestTrades()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec["msg"] != "trade" || rec["price"] != "102.50" || rec["quantity"] != float64(40) || rec["seller_id"] != "DD" {
		t.Errorf("unexpected log record %v", rec)
	}
}

// fakeWriter records messages instead of talking to a broker.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w, scale: testScale}

	if err := s.WriteTrades(context.Background(), newTestTrades()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(w.msgs))
	}
	for i, m := range w.msgs {
		var rec TradeRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if string(m.Key) != rec.TradeID {
			t.Errorf("message %d: key %q, trade id %q", i, m.Key, rec.TradeID)
		}
	}

	var last TradeRecord
	_ = json.Unmarshal(w.msgs[2].Value, &last)
	if last.Price != "102.50" || last.Quantity != 40 || last.BuyerID != "EE" || last.SellOrderID != 4 {
		t.Errorf("unexpected record %+v", last)
	}

	if err := s.Close(); err != nil || !w.closed {
		t.Errorf("Close: err=%v closed=%v", err, w.closed)
	}
}

func TestKafkaSink_EmptyTapeSendsNothing(t *testing.T) {
	w := &fakeWriter{err: errors.New("should not be called")}
	s := &KafkaSink{writer: w, scale: testScale}
	if err := s.WriteTrades(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKafkaSink_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	s := &KafkaSink{writer: &fakeWriter{err: boom}, scale: testScale}
	if err := s.WriteTrades(context.Background(), newTestTrades()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewKafkaSink(t *testing.T) {
	s := NewKafkaSink([]string{"localhost:9092"}, "trades", testScale)
	w, ok := s.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", s.writer)
	}
	if w.Topic != "trades" || w.RequiredAcks != kafka.RequireAll {
		t.Errorf("unexpected writer config topic=%q acks=%v", w.Topic, w.RequiredAcks)
	}
}

func openMemSink(t *testing.T, fs vfs.FS) *PebbleSink {
	t.Helper()
	s, err := OpenPebbleSink("tape", &pebble.Options{FS: fs}, testScale)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func scanAll(t *testing.T, s *PebbleSink) ([]uint64, []TradeRecord) {
	t.Helper()
	var seqs []uint64
	var recs []TradeRecord
	err := s.Scan(func(seq uint64, rec TradeRecord) error {
		seqs = append(seqs, seq)
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return seqs, recs
}

func TestPebbleSink(t *testing.T) {
	s := openMemSink(t, vfs.NewMem())
	defer s.Close()

	if err := s.WriteTrades(context.Background(), newTestTrades()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seqs, recs := scanAll(t, s)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, seq := range seqs {
		if seq != uint64(i+1) {
			t.Errorf("record %d has sequence %d", i, seq)
		}
	}
	if recs[0].TradeID != "t-1" || recs[2].Price != "102.50" || recs[2].SellerID != "DD" {
		t.Errorf("unexpected records %+v", recs)
	}
}

func TestPebbleSink_SequenceContinuesAfterReopen(t *testing.T) {
	fs := vfs.NewMem()
	trades := newTestTrades()

	s := openMemSink(t, fs)
	if err := s.WriteTrades(context.Background(), trades[:2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = openMemSink(t, fs)
	defer s.Close()
	if err := s.WriteTrades(context.Background(), trades[2:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seqs, recs := scanAll(t, s)
	if len(seqs) != 3 || seqs[2] != 3 || recs[2].TradeID != "t-3" {
		t.Fatalf("expected appended record at sequence 3, got %v %+v", seqs, recs)
	}
}

func TestKeyOrdering(t *testing.T) {
	// Big-endian keys sort numerically.
	if bytes.Compare(keyFor(255), keyFor(256)) >= 0 {
		t.Error("key for 255 should sort before 256")
	}
	seq, err := parseKey(keyFor(1 << 40))
	if err != nil || seq != 1<<40 {
		t.Errorf("parseKey round trip = %d, %v", seq, err)
	}
	if _, err := parseKey([]byte("order/1")); err == nil {
		t.Error("expected error for foreign key")
	}
}
