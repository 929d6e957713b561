package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"ltlmc"
	"ltlmc/checking"
	"ltlmc/graph"
	"ltlmc/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var checkFlags struct {
	graph            string
	workers          int
	peers            []string
	tableSize        int
	maxTableSize     int
	noCounterexample bool
	exportParents    string
	metricsAddr      string
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts, err := checkOptions()
	if err != nil {
		return err
	}
	if addr := pick(checkFlags.metricsAddr, file.Metrics.Addr); addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, ltlmc.WithMetrics(metrics.New(reg)))
		srv := serveMetrics(addr, reg)
		defer srv.Shutdown(context.Background())
	}
	if checkFlags.exportParents != "" {
		out, err := os.Create(checkFlags.exportParents)
		if err != nil {
			return err
		}
		defer out.Close()
		opts = append(opts, ltlmc.ExportParents(out))
	}

	var g graph.Graph
	if checkFlags.graph != "" {
		explicit, err := graph.LoadExplicitFile(checkFlags.graph)
		if err != nil {
			return err
		}
		g = explicit
	} else if len(checkFlags.peers) == 0 && len(file.Cluster.Peers) == 0 {
		return fmt.Errorf("a graph is required unless the check runs on remote workers")
	}

	resp, err := ltlmc.PrepareChecker(opts...).Run(ctx, g)
	if resp != nil {
		_, desc := resp.Response()
		fmt.Fprintln(cmd.OutOrStdout(), desc)
	}
	if err != nil {
		return err
	}
	if resp.Verdict == checking.PropertyViolated {
		return errViolated
	}
	return nil
}

// Options from the configuration file, overridden by flags
func checkOptions() ([]ltlmc.CheckOption, error) {
	opts := []ltlmc.CheckOption{ltlmc.WithLogger(log)}
	if n := pickInt(checkFlags.workers, file.Workers); n > 0 {
		opts = append(opts, ltlmc.Workers(n))
	}
	if n := pickInt(checkFlags.tableSize, file.Table.InitialSize); n > 0 {
		opts = append(opts, ltlmc.InitialTableSize(n))
	}
	if n := pickInt(checkFlags.maxTableSize, file.Table.MaxSize); n > 0 {
		opts = append(opts, ltlmc.MaxTableSize(n))
	}
	if file.Table.Factor > 0 {
		opts = append(opts, ltlmc.GrowthFactor(file.Table.Factor))
	}
	regions, err := file.Regions()
	if err != nil {
		return nil, err
	}
	if regions != nil {
		opts = append(opts, ltlmc.WithRegions(regions))
	}
	if checkFlags.noCounterexample || !file.WantCounterexample() {
		opts = append(opts, ltlmc.WithoutCounterexample())
	}
	peers := checkFlags.peers
	if len(peers) == 0 {
		peers = file.Cluster.Peers
	}
	if len(peers) > 0 {
		opts = append(opts, ltlmc.WithPeers(peers))
	}
	return opts, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", "addr", addr, "err", err)
		}
	}()
	log.Info("Serving metrics", "addr", addr)
	return srv
}

func pick(flag, fromFile string) string {
	if flag != "" {
		return flag
	}
	return fromFile
}

func pickInt(flag, fromFile int) int {
	if flag != 0 {
		return flag
	}
	return fromFile
}
