package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tieba-chat/internal/app/chatserver"
	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/config/source"
	corelog "tieba-chat/internal/core/log"
)

var (
	serveNode      string
	servePort      int
	serveRPCListen string
	servePeers     []string
	serveNoBanner  bool
)

// serveCmd 运行一个节点
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a chat node",
	Long: `Run a chat node until SIGINT or SIGTERM.

On shutdown the node stops accepting clients, drains queued messages,
withdraws the presence of every local user and announces its shutdown.

Example:
  chatserver serve -c /etc/tieba-chat/chatserver.yaml
  chatserver serve --node chat-2 --port 8091 --rpc-listen 10.0.0.2:50051 \
      --peer chat-1=10.0.0.1:50051`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveNode, "node", "", "Node name, unique across the cluster")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Client TCP port")
	serveCmd.Flags().StringVar(&serveRPCListen, "rpc-listen", "", "Cross-node gRPC listen address")
	serveCmd.Flags().StringSliceVar(&servePeers, "peer", nil, "Static peer as name=address (repeatable)")
	serveCmd.Flags().BoolVar(&serveNoBanner, "no-banner", false, "Do not print the startup banner")
}

func runServe(cmd *cobra.Command, _ []string) error {
	peers, err := parsePeers(servePeers)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(source.CLIOverrides{
		NodeName:  serveNode,
		Port:      servePort,
		RPCListen: serveRPCListen,
		Peers:     peers,
	})
	if err != nil {
		return err
	}

	srv, err := chatserver.NewServerBuilder(cfg).WithDefaults().Build(context.Background())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		_ = srv.Stop()
		return err
	}
	if !serveNoBanner && chatserver.IsTerminal() {
		srv.DisplayStartupBanner(cmd.OutOrStdout(), source.FindConfigFile(configFile))
	}

	if err := srv.Run(ctx); err != nil {
		return err
	}
	corelog.Infof("Node %s exited gracefully", cfg.Node.Name)
	return nil
}

// parsePeers 解析 name=address 形式的节点列表
func parsePeers(values []string) ([]schema.PeerConfig, error) {
	peers := make([]schema.PeerConfig, 0, len(values))
	for _, v := range values {
		name, addr, ok := strings.Cut(v, "=")
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("invalid --peer %q, want name=address", v)
		}
		peers = append(peers, schema.PeerConfig{Name: name, Address: addr})
	}
	return peers, nil
}
