package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginrpc "notegenius/internal/modules/tracker/adapter/out/rpc"
	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/platform/logger"
)

const (
	pluginStartTimeout = 3 * time.Second
	pluginCallTimeout  = 5 * time.Second
)

// PluginNotifier forwards notifications to an external plugin binary over
// go-plugin gRPC. The plugin process lives until Close.
type PluginNotifier struct {
	client *plugin.Client
	rpc    pluginrpc.NotifierClient
	meta   pluginrpc.Metadata
	log    logger.Logger
	wg     sync.WaitGroup
}

func NewPluginNotifier(binary string, log logger.Logger) (*PluginNotifier, error) {
	if log == nil {
		log = logger.Discard()
	}
	var hostLog hclog.Logger = hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel})
	if named, ok := log.(interface{ Named(string) hclog.Logger }); ok {
		hostLog = named.Named("plugin")
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(binary),
		Managed:          true,
		StartTimeout:     pluginStartTimeout,
		Logger:           hostLog,
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start notify plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense notify plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.NotifierClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("notify plugin rpc client type mismatch")
	}
	ctx, cancel := context.WithTimeout(context.Background(), pluginCallTimeout)
	defer cancel()
	meta, err := typed.GetMetadata(ctx)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("notify plugin metadata: %w", err)
	}
	return &PluginNotifier{client: client, rpc: typed, meta: *meta, log: log}, nil
}

var _ trackerout.Notifier = (*PluginNotifier)(nil)

func (n *PluginNotifier) Name() string {
	return n.meta.Name
}

// Notify never blocks the caller; delivery failures are logged.
func (n *PluginNotifier) Notify(note domain.Notification) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pluginCallTimeout)
		defer cancel()
		_, err := n.rpc.Notify(ctx, &pluginrpc.Notification{
			Title:       note.Title,
			Description: note.Description,
			Severity:    string(note.Severity),
			SentAt:      time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			n.log.Warn("notify plugin", n.meta.Name, err)
		}
	}()
}

func (n *PluginNotifier) Close() error {
	n.wg.Wait()
	n.client.Kill()
	return nil
}
