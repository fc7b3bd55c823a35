package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Seed       int64 `yaml:"seed"`
	TickRateHz int   `yaml:"tick_rate_hz"`
	ChunkSize  int   `yaml:"chunk_size"`
	// Chunks within this radius of the origin are loaded at startup.
	PreloadChunkRadius int `yaml:"preload_chunk_radius"`

	// Machines re-search at most this often while sleeping.
	SleepSeconds float64 `yaml:"sleep_seconds"`
	// Environment temperature is resampled from the climate on this interval.
	EnvResampleSeconds float64 `yaml:"env_resample_seconds"`

	// Pipe push rate per tick; -1 means one full stack.
	PipeRate int `yaml:"pipe_rate"`
	// Power handed to every power-gated machine each second.
	GeneratorPowerPerSecond int64 `yaml:"generator_power_per_second"`

	Climate Climate `yaml:"climate"`

	SnapshotEverySeconds int `yaml:"snapshot_every_seconds"`
}

type Climate struct {
	BaseTemperature float64 `yaml:"base_temperature"`
	Amplitude       float64 `yaml:"amplitude"`
	PeriodSeconds   float64 `yaml:"period_seconds"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:         "1.0",
		Seed:                    1337,
		TickRateHz:              10,
		ChunkSize:               32,
		PreloadChunkRadius:      2,
		SleepSeconds:            2,
		EnvResampleSeconds:      300,
		PipeRate:                1,
		GeneratorPowerPerSecond: 0,
		Climate: Climate{
			BaseTemperature: 15,
			Amplitude:       10,
			PeriodSeconds:   2400,
		},
		SnapshotEverySeconds: 300,
	}
}

func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.ChunkSize <= 0 {
		t.ChunkSize = d.ChunkSize
	}
	if t.PreloadChunkRadius < 0 {
		t.PreloadChunkRadius = 0
	}
	if t.SleepSeconds <= 0 {
		t.SleepSeconds = d.SleepSeconds
	}
	if t.EnvResampleSeconds <= 0 {
		t.EnvResampleSeconds = d.EnvResampleSeconds
	}
	if t.PipeRate == 0 {
		t.PipeRate = d.PipeRate
	}
	if t.Climate.PeriodSeconds <= 0 {
		t.Climate.PeriodSeconds = d.Climate.PeriodSeconds
	}
	if t.SnapshotEverySeconds <= 0 {
		t.SnapshotEverySeconds = d.SnapshotEverySeconds
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}
