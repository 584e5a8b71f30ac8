package plugins

import (
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/tcriess/lightspeed-code/config"
)

// Collaborators holds the loaded plugins. A nil Executor or Assistant is not configured.
type Collaborators struct {
	Executor  Executor
	Assistant Assistant

	clients []*plugin.Client
}

// Load starts the plugin commands of cfg. Each command is run via sh -c, as the relay did for its chat plugins.
func Load(cfg *config.Config, logger hclog.Logger) (*Collaborators, error) {
	c := &Collaborators{}
	if cfg.PluginsConfig.Executor != "" {
		raw, err := c.dispense(cfg.PluginsConfig.Executor, ExecutorPluginName, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		executor, ok := raw.(Executor)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("plugin %s is not an executor", cfg.PluginsConfig.Executor)
		}
		c.Executor = executor
	}
	if cfg.PluginsConfig.Assistant != "" {
		raw, err := c.dispense(cfg.PluginsConfig.Assistant, AssistantPluginName, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		assistant, ok := raw.(Assistant)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("plugin %s is not an assistant", cfg.PluginsConfig.Assistant)
		}
		c.Assistant = assistant
	}
	return c, nil
}

func (c *Collaborators) dispense(command, name string, logger hclog.Logger) (interface{}, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command("sh", "-c", command),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Managed:          true,
		Logger:           logger.Named(name),
	})
	c.clients = append(c.clients, client)
	rpcClient, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("could not start plugin %s: %w", command, err)
	}
	raw, err := rpcClient.Dispense(name)
	if err != nil {
		return nil, fmt.Errorf("could not dispense %s from %s: %w", name, command, err)
	}
	return raw, nil
}

// Close kills the plugin processes.
func (c *Collaborators) Close() {
	for _, client := range c.clients {
		client.Kill()
	}
	c.clients = nil
}
