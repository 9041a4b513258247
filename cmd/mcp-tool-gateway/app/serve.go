package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcpgateway "github.com/vikashloomba/mcp-tool-gateway/pkg/mcp-gateway"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

const banner = `
  __  __  ___ ___   _____         _    ___      _
 |  \/  |/ __| _ \ |_   _|__  ___| |  / __|__ _| |_ _____ __ ____ _ _  _
 | |\/| | (__|  _/   | |/ _ \/ _ \ | | (_ / _' |  _/ -_) V  V / _' | || |
 |_|  |_|\___|_|     |_|\___/\___/_|  \___\__,_|\__\___|\_/\_/\__,_|\_, |
                                                                    |__/
`

func (c *cli) newServeCmd() *cobra.Command {
	var (
		path          string
		defaultServer string
		autoConnect   bool
		logJSONRPC    bool
		quiet         bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway. Backend servers are resolved from the config file on
every request for a server that is not yet connected, so edits to the file
take effect without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := c.logger(cmd)
			resolver, err := c.resolver(logger)
			if err != nil {
				return err
			}
			manager := mcpmgr.NewManager(resolver.Bootstrap(), &mcpmgr.ManagerOptions{
				ClientName: "mcp-tool-gateway",
				Logger:     logger,
				LogJSONRPC: logJSONRPC,
			})
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := manager.Close(closeCtx); err != nil {
					logger.Warn("closing MCP sessions", "error", err)
				}
			}()

			gw, err := mcpgateway.NewGateway(manager, &mcpgateway.Options{
				Implementation: &mcp.Implementation{Name: "mcp-tool-gateway", Version: version},
				Addr:           c.v.GetString(keyAddr),
				Path:           path,
				DefaultServer:  defaultServer,
				AutoConnect:    autoConnect,
				Logger:         logger,
			})
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}

			opts := gw.Options()
			if !quiet {
				printBanner(cmd.OutOrStdout(), opts, resolver)
			}
			logger.Info("starting mcp-tool-gateway",
				"addr", opts.Addr,
				"mcp_path", opts.Path,
				"default_server", opts.DefaultServer,
			)
			if err := gw.ListenAndServe(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("gateway stopped: %w", err)
			}
			logger.Info("gateway stopped")
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String(keyAddr, mcpgateway.DefaultAddr, "listen address")
	flags.StringVar(&path, "path", "/mcp", "mount path of the aggregated MCP endpoint")
	flags.StringVar(&defaultServer, "default-server", mcpmgr.LegacyServerName, "server used when a request names none")
	flags.BoolVar(&autoConnect, "autoconnect", false, "connect every configured server at startup")
	flags.BoolVar(&logJSONRPC, "log-jsonrpc", false, "log JSON-RPC traffic at debug level")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress the startup banner")
	_ = c.v.BindPFlag(keyAddr, flags.Lookup(keyAddr))
	return cmd
}

func printBanner(w io.Writer, opts mcpgateway.Options, resolver *mcpmgr.Resolver) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", version)

	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "HTTP:     %s\n", opts.Addr)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "MCP:      %s\n", opts.Path)

	descriptors, err := resolver.Resolve()
	switch {
	case err != nil:
		yellow.Fprint(w, "    ! ")
		fmt.Fprintf(w, "Config:   %v\n", err)
	case len(descriptors) == 0:
		yellow.Fprint(w, "    ! ")
		fmt.Fprintln(w, "Servers:  none configured")
	default:
		for _, d := range descriptors {
			green.Fprint(w, "    ▶ ")
			fmt.Fprintf(w, "Server:   %s ", d.Name)
			gray.Fprintf(w, "(%s)\n", mcpmgr.TransportOf(d))
		}
	}
	fmt.Fprintln(w)
}
