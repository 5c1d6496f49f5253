// Package generator writes synthetic measurements files in the
// "name;value\n" format read by the pipeline.
package generator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"strconv"

	"github.com/jaswdr/faker"

	"github.com/jittakal/onebrc/internal/fixedpoint"
)

const (
	maxNameBytes  = 100
	minTenths     = -999
	maxTenths     = 999
	stddev        = 10.0
	checkInterval = 1 << 16
)

// Config sizes a generated file. Equal seeds produce identical output.
type Config struct {
	Rows     int64
	Stations int
	Seed     int64
}

// Station is a generated station with the mean its values are drawn around.
type Station struct {
	Name string
	Mean float64
}

// Generator generates measurement lines
type Generator struct {
	config   Config
	rng      *rand.Rand
	stations []Station
	logger   *slog.Logger
}

// NewGenerator picks cfg.Stations distinct city names and their means.
func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.Stations <= 0 {
		return nil, fmt.Errorf("stations must be positive, got %d", cfg.Stations)
	}
	if cfg.Rows < 0 {
		return nil, fmt.Errorf("rows must not be negative, got %d", cfg.Rows)
	}

	g := &Generator{
		config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}
	g.stations = g.pickStations(faker.NewWithSeed(rand.NewSource(cfg.Seed)))
	return g, nil
}

// pickStations draws city names until enough are distinct. Repeats past
// the faker's vocabulary get a numeric suffix.
func (g *Generator) pickStations(f faker.Faker) []Station {
	seen := make(map[string]struct{}, g.config.Stations)
	stations := make([]Station, 0, g.config.Stations)
	misses := 0

	for len(stations) < g.config.Stations {
		name := f.Address().City()
		if _, ok := seen[name]; ok || misses > 8*g.config.Stations {
			misses++
			name += " " + strconv.Itoa(len(stations))
		}
		if len(name) > maxNameBytes {
			name = name[:maxNameBytes]
		}
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		stations = append(stations, Station{
			Name: name,
			Mean: -20 + g.rng.Float64()*55,
		})
	}
	return stations
}

// Stations returns the generated stations.
func (g *Generator) Stations() []Station {
	return g.stations
}

// Sample draws one value in tenths for s.
func (g *Generator) Sample(s Station) int64 {
	return clamp(int64(math.Round((g.rng.NormFloat64()*stddev + s.Mean) * 10)))
}

func clamp(tenths int64) int64 {
	return min(max(tenths, minTenths), maxTenths)
}

// WriteTo writes cfg.Rows lines to w and returns the bytes written.
func (g *Generator) WriteTo(ctx context.Context, w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	line := make([]byte, 0, maxNameBytes+8)
	var written int64

	for i := int64(0); i < g.config.Rows; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
		}

		s := g.stations[g.rng.Intn(len(g.stations))]
		line = append(line[:0], s.Name...)
		line = append(line, ';')
		line = fixedpoint.AppendTenths(line, g.Sample(s))
		line = append(line, '\n')

		n, err := bw.Write(line)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write measurement: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("failed to flush measurements: %w", err)
	}

	g.logger.Info("measurements generated",
		"rows", g.config.Rows,
		"stations", len(g.stations),
		"bytes", written,
	)
	return written, nil
}
