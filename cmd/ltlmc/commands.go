package main

import (
	"log/slog"
	"os"

	"ltlmc/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	file config.File
	log  *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "ltlmc",
		Short: "Search state graphs for accepting cycles",
		Long: `ltlmc checks a state graph for accepting cycles with the MAP algorithm.
The check runs on local workers, or on worker processes started with the worker command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				f, err := config.Load(configPath)
				if err != nil {
					return err
				}
				file = f
			}
			if logLevel != "" {
				file.Log.Level = logLevel
			}
			level, err := file.Level()
			if err != nil {
				return err
			}
			log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(log)
			return nil
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check a graph for an accepting cycle",
		Long: `Check the graph read from --graph for an accepting cycle.
With --peers the check runs on remote workers, which explore their own graph.
The exit status is 0 if no accepting cycle exists, 2 if one was found and 1 on errors.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Serve one worker of a distributed check",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path of a yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	checkCmd.Flags().StringVar(&checkFlags.graph, "graph", "", "path of the yaml graph to check")
	checkCmd.Flags().IntVar(&checkFlags.workers, "workers", 0, "number of local workers")
	checkCmd.Flags().StringSliceVar(&checkFlags.peers, "peers", nil, "addresses of remote workers, ordered by worker id")
	checkCmd.Flags().IntVar(&checkFlags.tableSize, "table-size", 0, "initial number of slots of the state store")
	checkCmd.Flags().IntVar(&checkFlags.maxTableSize, "max-table-size", 0, "maximal number of slots of the state store")
	checkCmd.Flags().BoolVar(&checkFlags.noCounterexample, "no-counterexample", false, "only report whether an accepting cycle exists")
	checkCmd.Flags().StringVar(&checkFlags.exportParents, "export-parents", "", "write the parent forest in Newick format to this file")
	checkCmd.Flags().StringVar(&checkFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	workerCmd.Flags().StringVar(&workerFlags.listen, "listen", "", "address to serve the worker on")
	workerCmd.Flags().IntVar(&workerFlags.id, "id", 0, "worker id, the position of the worker among the peers")
	workerCmd.Flags().StringSliceVar(&workerFlags.peers, "peers", nil, "addresses of all workers, ordered by worker id")
	workerCmd.Flags().StringVar(&workerFlags.graph, "graph", "", "path of the yaml graph to explore")
	workerCmd.MarkFlagRequired("graph")

	rootCmd.AddCommand(checkCmd, workerCmd)
}
