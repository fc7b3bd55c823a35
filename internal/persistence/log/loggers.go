// Package log writes durable zstd-compressed JSONL audit segments.
//
// Segments are cut on simulation ticks, not wall-clock time, so the same world
// run always produces the same file names: audit-<first tick>.jsonl.zst.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelforge.ai/internal/sim/world"
)

const suffix = ".jsonl.zst"

// SegmentWriter appends JSON lines to the segment a tick falls into. A tick
// belongs to the segment starting at tick - tick%span.
type SegmentWriter struct {
	dir    string
	prefix string
	span   uint64

	mu    sync.Mutex
	start uint64
	open  bool
	file  *os.File
	zw    *zstd.Encoder
	buf   *bufio.Writer
	lines int
}

func NewSegmentWriter(dir, prefix string, span uint64) *SegmentWriter {
	if span == 0 {
		span = 1
	}
	return &SegmentWriter{dir: dir, prefix: prefix, span: span}
}

// Append writes v as one line of the segment holding tick. The line is flushed
// through to the compressor so a crash loses at most the open zstd frame.
func (s *SegmentWriter) Append(tick uint64, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	start := tick - tick%s.span
	if !s.open || start != s.start {
		if err := s.switchTo(start); err != nil {
			return err
		}
	}
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	s.lines++
	return s.buf.Flush()
}

// Lines is the number of lines written to the open segment.
func (s *SegmentWriter) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

func (s *SegmentWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finish()
}

func (s *SegmentWriter) path(start uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", s.prefix, start, suffix))
}

// switchTo finishes the open segment and appends to the one at start.
// Reopening an earlier segment after a restore appends a new zstd frame.
func (s *SegmentWriter) switchTo(start uint64) error {
	if err := s.finish(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path(start), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.file, s.zw, s.buf = f, zw, bufio.NewWriter(zw)
	s.start, s.open, s.lines = start, true, 0
	return nil
}

func (s *SegmentWriter) finish() error {
	if !s.open {
		return nil
	}
	s.open = false
	err := s.buf.Flush()
	err = errors.Join(err, s.zw.Close())
	err = errors.Join(err, s.file.Close())
	s.file, s.zw, s.buf = nil, nil, nil
	return err
}

// Segments lists the segment files under dir for prefix, oldest first.
func Segments(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type seg struct {
		start uint64
		path  string
	}
	var segs []seg
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, suffix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), suffix), 10, 64)
		if err != nil {
			continue
		}
		segs = append(segs, seg{start: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].start < segs[j].start })
	out := make([]string, len(segs))
	for i, sg := range segs {
		out[i] = sg.path
	}
	return out, nil
}

// AuditLogger records crafts, tool breaks, overflow drops and pipe transfers,
// one segment per simulated hour.
type AuditLogger struct{ w *SegmentWriter }

func NewAuditLogger(worldDir string, tickRateHz int) *AuditLogger {
	if tickRateHz <= 0 {
		tickRateHz = 10
	}
	return &AuditLogger{w: NewSegmentWriter(AuditDir(worldDir), "audit", uint64(3600*tickRateHz))}
}

func AuditDir(worldDir string) string { return filepath.Join(worldDir, "audit") }

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.w.Append(e.Tick, e) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }

// ReadAudit decodes every entry of one audit segment.
func ReadAudit(path string) ([]world.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []world.AuditEntry
	dec := json.NewDecoder(zr)
	for {
		var e world.AuditEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("%s: entry %d: %w", filepath.Base(path), len(out), err)
		}
		out = append(out, e)
	}
}
