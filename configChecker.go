package ltlmc

import (
	"io"
	"log/slog"
	"runtime"

	"ltlmc/algorithm"
	"ltlmc/cluster"
	"ltlmc/config"
	"ltlmc/graph"
	"ltlmc/metrics"
	"ltlmc/parallel"
	"ltlmc/scheduler"
	"ltlmc/stateManager"
	"ltlmc/store"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Prepare a checker with the provided configuration.
//
// See the CheckOptions for a full overview of possible options.
// Default values will be used if no value is provided.
// By default the check runs locally with GOMAXPROCS workers.
func PrepareChecker(opts ...CheckOption) *Checker {
	c := &Checker{
		// Number of workers the state space is partitioned over
		workers: runtime.GOMAXPROCS(0),

		table: store.DefaultConfig(),
		log:   slog.Default(),

		counterexample: true,
		dialOpts:       []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}

	for _, opt := range opts {
		switch t := opt.(type) {
		case config.WorkersOption:
			c.workers = t.N
		case config.TableSizeOption:
			c.table.Size = t.Size
		case config.GrowthFactorOption:
			c.table.Factor = t.Factor
		case config.RegionsOption:
			c.table.Regions = t.Regions
		case config.MaxTableSizeOption:
			c.table.MaxSize = t.Size
		case config.LoggerOption:
			c.log = t.Logger
		case config.MetricsOption:
			c.metrics = t.Metrics
		case config.NoCounterexampleOption:
			c.counterexample = false
		case config.PeersOption:
			c.peers = t.Addrs
			if len(t.DialOpts) > 0 {
				c.dialOpts = t.DialOpts
			}
		case config.ExportOption:
			c.export = append(c.export, t.W)
		}
	}
	if c.workers < 1 {
		c.workers = 1
	}
	c.table.Logger = c.log
	return c
}

// Prepare the server of one worker of a distributed check.
//
// peers holds the addresses of all workers, ordered by worker id, and id is
// the position of this worker among them. Every run bound to the server gets
// a fresh state store configured by opts.
// The server must be registered on a grpc.Server to be reachable.
func PrepareWorker(id int, peers []string, g graph.Graph, opts ...CheckOption) *cluster.Server[algorithm.Shared] {
	c := PrepareChecker(opts...)
	factory := func(comms scheduler.Comms) (parallel.Instance[algorithm.Shared], error) {
		m := stateManager.New(len(peers), c.table)
		return algorithm.NewWorker(id, g, m, comms, c.log), nil
	}
	return cluster.NewServer[algorithm.Shared](id, peers, algorithm.Codec{}, factory, c.log, c.dialOpts...)
}

// Optional parameters used to configure a check
type CheckOption interface {
	CheckOpt()
}

// Configure the number of workers the state space is partitioned over.
//
// Default value is GOMAXPROCS.
func Workers(n int) CheckOption {
	return config.WorkersOption{N: n}
}

// Configure the initial number of slots of the state store.
//
// Default value is 4096.
func InitialTableSize(size int) CheckOption {
	return config.TableSizeOption{Size: size}
}

// Configure the factor the state store grows by.
//
// Default value is 2.
func GrowthFactor(factor int) CheckOption {
	return config.GrowthFactorOption{Factor: factor}
}

// Configure how the state store is split into locked regions.
//
// Default value is store.SqrtRegions, with a region size growing with the square root of the table size.
func WithRegions(r store.Regions) CheckOption {
	return config.RegionsOption{Regions: r}
}

// Configure the maximal number of slots of the state store.
//
// When the store cannot grow any further the check stops with a ResourceExhausted verdict.
// Default value is no limit.
func MaxTableSize(size int) CheckOption {
	return config.MaxTableSizeOption{Size: size}
}

// Use the provided logger during the check.
//
// Default value is slog.Default().
func WithLogger(log *slog.Logger) CheckOption {
	return config.LoggerOption{Logger: log}
}

// Update the provided prometheus metrics during the check.
func WithMetrics(m *metrics.Metrics) CheckOption {
	return config.MetricsOption{Metrics: m}
}

// Only report whether an accepting cycle exists.
//
// By default a counterexample leading to the cycle and around it is reconstructed.
func WithoutCounterexample() CheckOption {
	return config.NoCounterexampleOption{}
}

// Run the check on remote workers.
//
// addrs holds the address of every worker, ordered by worker id.
// Each worker explores the graph it was started with.
// Default dial options use insecure transport credentials.
func WithPeers(addrs []string, dialOpts ...grpc.DialOption) CheckOption {
	return config.PeersOption{Addrs: addrs, DialOpts: dialOpts}
}

// Export the parent forest of the stored states to the writer after a local check.
//
// Every tree is written on its own line in Newick format.
// Can be applied multiple times to export to multiple writers.
func ExportParents(w io.Writer) CheckOption {
	return config.ExportOption{W: w}
}
