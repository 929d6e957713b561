package config

import (
	"io"
	"log/slog"

	"ltlmc/metrics"
	"ltlmc/store"

	"google.golang.org/grpc"
)

// Configures the number of workers the state space is partitioned over

// Ignored when the check runs on remote peers, which use one worker each.
// Default value is GOMAXPROCS.
type WorkersOption struct {
	N int
}

func (wo WorkersOption) CheckOpt() {}

// Configures the initial number of slots in the state store

// Default value is 4096.
type TableSizeOption struct {
	Size int
}

func (tso TableSizeOption) CheckOpt() {}

// Configures the factor the state store grows by when it is full

// Default value is 2.
type GrowthFactorOption struct {
	Factor int
}

func (gfo GrowthFactorOption) CheckOpt() {}

// Configures how the slots of the state store are split into locked regions

// Default value is store.SqrtRegions.
type RegionsOption struct {
	Regions store.Regions
}

func (ro RegionsOption) CheckOpt() {}

// Configures the maximal number of slots of the state store

// The check ends with a ResourceExhausted verdict if the store cannot grow past it.
// Default value is 0, meaning no limit.
type MaxTableSizeOption struct {
	Size int
}

func (mtso MaxTableSizeOption) CheckOpt() {}

// Configures the logger used during the check

// Default value is slog.Default().
type LoggerOption struct {
	Logger *slog.Logger
}

func (lo LoggerOption) CheckOpt() {}

// Configures the prometheus metrics updated during the check

// Default value is no metrics.
type MetricsOption struct {
	Metrics *metrics.Metrics
}

func (mo MetricsOption) CheckOpt() {}

// Skips the reconstruction of the counterexample when a cycle is found
type NoCounterexampleOption struct{}

func (nco NoCounterexampleOption) CheckOpt() {}

// Configures the check to run on remote worker peers

// Addrs holds one address per worker, ordered by worker id.
// DialOpts are used when connecting to them.
type PeersOption struct {
	Addrs    []string
	DialOpts []grpc.DialOption
}

func (po PeersOption) CheckOpt() {}

// Configures io.writers that the parent forest of the stored states will be exported to

// Can be applied multiple times to add multiple io.writers.
// Only local checks can export.
// Default value is no writers.
type ExportOption struct {
	W io.Writer
}

func (eo ExportOption) CheckOpt() {}
