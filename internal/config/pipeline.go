package config

import (
	"runtime"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/config/dto"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/internal/pipeline"
)

// PipelineConfig turns the loaded settings into a pipeline.Config. Zero
// workers means one per CPU.
func PipelineConfig(cfg *dto.ApplicationConfig) (pipeline.Config, error) {
	family, err := aggregate.ByName(cfg.Aggregate.Hash)
	if err != nil {
		return pipeline.Config{}, &errors.ConfigError{Field: "aggregate.hash", Reason: "unknown hash family", Err: err}
	}

	workers := cfg.Pipeline.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	pc := pipeline.Config{
		Workers:         workers,
		BufferSize:      cfg.Pipeline.BufferSizeKB * 1024,
		BufferCount:     cfg.Pipeline.BufferCount,
		MaxRecordLength: cfg.Pipeline.MaxRecordLength,
		TableSize:       cfg.Aggregate.TableSize,
		Hash:            family(cfg.Aggregate.Seed),
	}
	return pc, pc.Validate()
}
