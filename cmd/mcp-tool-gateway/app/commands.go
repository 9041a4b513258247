package app

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-tool-gateway/pkg/provider"
)

func (c *cli) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve the server configuration and report problems",
		Long: `Resolve the MCP server configuration exactly as serve would and list the
servers it describes. Exits non-zero when the config file is present but
unusable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := c.resolver(c.logger(cmd))
			if err != nil {
				return err
			}
			descriptors, err := resolver.Resolve()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(descriptors) == 0 {
				fmt.Fprintln(out, "no servers configured")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTRANSPORT\tTARGET\tLOG")
			for _, d := range descriptors {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, mcpmgr.TransportOf(d), target(d), d.LogPath)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "%d server(s) OK\n", len(descriptors))
			return nil
		},
	}
}

func target(d mcpmgr.ServerDescriptor) string {
	if mcpmgr.IsNetworkStream(d) {
		return d.URL
	}
	t := d.Command
	for _, arg := range d.Args {
		t += " " + arg
	}
	return t
}

func (c *cli) newToolsCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "tools [provider]",
		Short: "List a server's tools, optionally in a provider's format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := c.client()
			if len(args) == 0 {
				tools, err := client.Tools(cmd.Context(), server)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), tools)
			}
			if _, err := provider.Lookup(args[0]); err != nil {
				return err
			}
			envelope, err := client.GetTools(cmd.Context(), args[0], server)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), envelope)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "backend server name")
	return cmd
}

func (c *cli) newExecuteCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "execute <provider> <call-json>",
		Short: "Execute a provider-shaped function call",
		Example: `  mcp-tool-gateway execute openai '{"name":"add","arguments":"{\"a\":1,\"b\":2}"}'
  mcp-tool-gateway execute gemini '{"name":"add","args":{"a":1,"b":2}}' --server math`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := provider.Lookup(args[0]); err != nil {
				return err
			}
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("invalid call JSON: %s", args[1])
			}
			result, err := c.client().Execute(cmd.Context(), args[0], json.RawMessage(args[1]), server)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "backend server name")
	return cmd
}

func (c *cli) newCallCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "call <tool> [arguments-json]",
		Short: "Call a backend tool with canonical arguments",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arguments := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &arguments); err != nil {
					return fmt.Errorf("invalid arguments JSON: %w", err)
				}
			}
			result, err := c.client().CallTool(cmd.Context(), server, args[0], arguments)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "backend server name")
	return cmd
}

func (c *cli) newLogsCmd() *cobra.Command {
	var (
		server string
		since  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of a server's log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := c.client().Logs(cmd.Context(), server, since, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "backend server name")
	cmd.Flags().StringVar(&since, "since", "", "only entries at or after this RFC 3339 timestamp")
	cmd.Flags().IntVarP(&limit, "limit", "n", mcpmgr.DefaultLogLimit, "maximum number of lines")
	return cmd
}

func (c *cli) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := c.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			gray := color.New(color.FgHiBlack)
			fmt.Fprintf(out, "gateway: %s (%d servers)\n", c.v.GetString(keyURL), health.ServerCount)
			for _, s := range health.Servers {
				if s.Connected {
					green.Fprint(out, "  ● ")
				} else {
					gray.Fprint(out, "  ○ ")
				}
				fmt.Fprintf(out, "%s (%s)\n", s.Name, s.Transport)
			}
			return nil
		},
	}
}
