// Package app provides the commands of the mcp-tool-gateway CLI.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/gatewayclient"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// EnvPrefix namespaces environment overrides, e.g. MCP_GATEWAY_ADDR.
const EnvPrefix = "MCP_GATEWAY"

// version is set at build time.
var version = "dev"

const (
	keyConfig    = "config"
	keyEnvFile   = "env-file"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
	keyURL       = "url"
	keyAddr      = "addr"
)

// cli carries the per-invocation settings shared by every command.
type cli struct {
	v *viper.Viper
}

// NewRootCmd builds the command tree. Flags are bound to a private viper
// instance that also reads MCP_GATEWAY_* environment variables.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	c := &cli{v: v}

	root := &cobra.Command{
		Use:   "mcp-tool-gateway",
		Short: "Expose MCP server tools to LLM function-calling providers",
		Long: `mcp-tool-gateway connects to the MCP servers named in a config file and
translates their tools to and from the function-calling formats of Gemini,
OpenAI and xAI. The serve command runs the HTTP gateway; the remaining
commands are thin clients for a running gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "path to the MCP servers config file (default $MCP_SERVERS_CONFIG or mcp-servers.json)")
	flags.String(keyEnvFile, ".env", "dotenv file layered over the process environment")
	flags.String(keyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(keyLogFormat, "text", "log format: text or json")
	flags.String(keyURL, "http://localhost:8787", "gateway base URL for client commands")
	for _, key := range []string{keyConfig, keyEnvFile, keyLogLevel, keyLogFormat, keyURL} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(
		c.newServeCmd(),
		c.newValidateCmd(),
		c.newToolsCmd(),
		c.newExecuteCmd(),
		c.newCallCmd(),
		c.newLogsCmd(),
		c.newHealthCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcp-tool-gateway version: %s\n", version)
		},
	}
}

// logger writes to the command's stderr so output stays clean for piping.
func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	return setupLogger(cmd.ErrOrStderr(), c.v.GetString(keyLogLevel), c.v.GetString(keyLogFormat))
}

// resolver builds the config resolver with the dotenv overlay applied.
func (c *cli) resolver(logger *slog.Logger) (*mcpmgr.Resolver, error) {
	env, err := mcpmgr.LoadEnvOverlay(c.v.GetString(keyEnvFile))
	if err != nil {
		return nil, err
	}
	return &mcpmgr.Resolver{
		ConfigPath: c.v.GetString(keyConfig),
		Env:        env,
		Logger:     logger,
	}, nil
}

func (c *cli) client() *gatewayclient.Client {
	return gatewayclient.New(c.v.GetString(keyURL))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
