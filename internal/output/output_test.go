package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

type testRecord struct {
	Kind    string `json:"kind" yaml:"kind"`
	Deleted int    `json:"deleted" yaml:"deleted"`
}

// --- ParseFormat ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"jsonl", FormatJSONL, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- Encode ---

func TestEncode_JSONPretty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, FormatJSON, testRecord{Kind: "summary", Deleted: 5}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\n  \"kind\"") {
		t.Errorf("expected indented JSON, got %q", buf.String())
	}

	var got testRecord
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Deleted != 5 {
		t.Errorf("deleted = %d, want 5", got.Deleted)
	}
}

func TestEncode_JSONLCompact(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, FormatJSONL, testRecord{Kind: "summary"}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected a single line, got %q", buf.String())
	}
}

func TestEncode_YAML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, FormatYAML, testRecord{Kind: "summary", Deleted: 2}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got testRecord
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got.Kind != "summary" || got.Deleted != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestEncode_TextUnsupported(t *testing.T) {
	err := Encode(&bytes.Buffer{}, FormatText, testRecord{})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported error, got %v", err)
	}
}

// --- JSONLWriter ---

func TestJSONLWriter_SeparateLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	for i := 0; i < 3; i++ {
		if err := w.Write(testRecord{Kind: "removed", Deleted: i}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec testRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d invalid JSON: %v", i, err)
		}
		if rec.Deleted != i {
			t.Errorf("line %d deleted = %d", i, rec.Deleted)
		}
	}
}

func TestJSONLWriter_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = w.Write(testRecord{Kind: "retry", Deleted: i})
		}(i)
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Errorf("expected 20 lines, got %d", n)
	}
}

func TestJSONLWriter_UnmarshalableValue(t *testing.T) {
	w := NewJSONLWriter(&bytes.Buffer{})
	if err := w.Write(make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
	if w.Err() != nil {
		t.Error("marshal errors must not poison the writer")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJSONLWriter_StickyError(t *testing.T) {
	w := NewJSONLWriter(failingWriter{})
	if err := w.Write(testRecord{}); err == nil {
		t.Fatal("expected write error")
	}
	if w.Err() == nil {
		t.Error("expected Err() to report the write failure")
	}
}

func TestJSONLWriter_CloseClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	w := NewJSONLWriter(f)
	if err := w.Write(testRecord{Kind: "stopped"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"kind":"stopped"`) {
		t.Errorf("unexpected file contents %q", data)
	}
}

// --- Open ---

func TestOpen_Stdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		w, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", path, err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("closing stdout wrapper should be a no-op, got %v", err)
		}
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "out.json"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
