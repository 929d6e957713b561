package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"

	"ltlmc"
	"ltlmc/graph"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var workerFlags struct {
	listen string
	id     int
	peers  []string
	graph  string
}

func runWorker(cmd *cobra.Command, args []string) error {
	peers := workerFlags.peers
	if len(peers) == 0 {
		peers = file.Cluster.Peers
	}
	if workerFlags.id < 0 || workerFlags.id >= len(peers) {
		return fmt.Errorf("worker id %d is not among %d peers", workerFlags.id, len(peers))
	}
	listen := workerFlags.listen
	if listen == "" {
		listen = peers[workerFlags.id]
	}

	g, err := graph.LoadExplicitFile(workerFlags.graph)
	if err != nil {
		return err
	}
	opts, err := checkOptions()
	if err != nil {
		return err
	}
	w := ltlmc.PrepareWorker(workerFlags.id, peers, g, opts...)
	defer w.Close()

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	w.Register(gs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	log.Info("Serving worker", "id", workerFlags.id, "addr", lis.Addr(), "peers", len(peers))
	return gs.Serve(lis)
}
