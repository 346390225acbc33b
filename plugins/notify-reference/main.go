package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	pluginrpc "notegenius/internal/modules/tracker/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{Name: "notify-reference", Version: "1.0.0"}, nil
}

// Notify writes one line per notification to stderr, which the host
// forwards to its plugin log.
func (s *server) Notify(_ context.Context, in *pluginrpc.Notification) (*pluginrpc.NotifyResponse, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("notification without title")
	}
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", strings.ToUpper(in.Severity), in.Title, in.Description)
	return &pluginrpc.NotifyResponse{Delivered: true}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
