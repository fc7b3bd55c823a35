package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64   `json:"seed"`
	TickRate  int     `json:"tick_rate_hz"`
	ChunkSize int     `json:"chunk_size"`
	Elapsed   float64 `json:"elapsed_seconds"`
	// RNG is the marshalled world random source; empty means fresh from Seed.
	RNG []byte `json:"rng,omitempty"`

	ItemsDigest   string `json:"items_digest,omitempty"`
	RecipesDigest string `json:"recipes_digest,omitempty"`

	Chunks     []ChunkV1      `json:"chunks"`
	Blocks     []BlockV1      `json:"blocks,omitempty"`
	Machines   []MachineV1    `json:"machines"`
	Containers []ContainerV1  `json:"containers"`
	Pipes      []PipeV1       `json:"pipes,omitempty"`
	Items      []ItemEntityV1 `json:"items,omitempty"`
	Deposits   []DepositV1    `json:"deposits,omitempty"`
	Recipes    []RecipeFlagV1 `json:"recipes,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextItem uint64 `json:"next_item"`
}

type ChunkV1 struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

// BlockV1 is a placed non-inventory block: pipe segments, blowers, ore.
type BlockV1 struct {
	Pos  [3]int `json:"pos"`
	Code string `json:"code"`
}

type StackV1 struct {
	Code       string `json:"code,omitempty"`
	Count      int    `json:"count,omitempty"`
	Durability int    `json:"durability,omitempty"`
}

// MachineV1 carries the controller's flat attribute tree next to its slots.
type MachineV1 struct {
	Pos   [3]int            `json:"pos"`
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs"`
	Slots []StackV1         `json:"slots"`
	Parts [][3]int          `json:"parts,omitempty"`
}

type ContainerV1 struct {
	Pos   [3]int    `json:"pos"`
	Slots []StackV1 `json:"slots"`
}

type PipeV1 struct {
	Pos       [3]int   `json:"pos"`
	Source    [3]int   `json:"source"`
	HasFilter bool     `json:"has_filter,omitempty"`
	Whitelist bool     `json:"whitelist,omitempty"`
	Patterns  []string `json:"patterns,omitempty"`
	Rate      int      `json:"rate"`
	Policy    string   `json:"policy"`
	Cursor    int      `json:"cursor"`

	Connections []ConnectionV1 `json:"connections,omitempty"`
}

type ConnectionV1 struct {
	Pos      [3]int `json:"pos"`
	Distance int    `json:"distance"`
}

type ItemEntityV1 struct {
	EntityID    string `json:"entity_id"`
	Pos         [3]int `json:"pos"`
	Item        string `json:"item"`
	Count       int    `json:"count"`
	CreatedTick uint64 `json:"created_tick"`
}

// DepositV1 records a deposit instance; Done deposits never regenerate.
type DepositV1 struct {
	ID      string `json:"id"`
	Pos     [3]int `json:"pos"`
	Radius  int    `json:"radius"`
	Ore     string `json:"ore"`
	Density int    `json:"density"`
	Done    bool   `json:"done"`
}

type RecipeFlagV1 struct {
	ID      int32 `json:"id"`
	Enabled bool  `json:"enabled"`
}

// FileName is the snapshot file name for tick.
func FileName(tick uint64) string { return fmt.Sprintf("%d.snap.zst", tick) }

// Latest returns the snapshot with the highest tick in dir.
func Latest(dir string) (string, uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, err
	}
	var ticks []uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	if len(ticks) == 0 {
		return "", 0, os.ErrNotExist
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	t := ticks[len(ticks)-1]
	return filepath.Join(dir, FileName(t)), t, nil
}

// WriteSnapshot writes a JSON header line followed by the gob body, both
// inside one zstd stream. The file is written under a temp name and renamed.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func open(path string) (*os.File, *zstd.Decoder, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}
	return f, dec, bufio.NewReaderSize(dec, 256*1024), nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, dec, br, err := open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	defer dec.Close()

	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, dec, br, err := open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	defer dec.Close()

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d, want %d", snap.Header.Version, Version)
	}
	return snap, nil
}
