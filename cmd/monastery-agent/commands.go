package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/handlers"
	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/toolserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the action catalog as tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer logger.Sync()

			srv := toolserver.New(a.Dispatcher, a.Config.ServiceName, version, logger)
			return srv.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newAskCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message, or chat interactively when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer logger.Sync()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			if message := strings.TrimSpace(strings.Join(args, " ")); message != "" {
				return ask(cmd, a.Agent, sessionID, message)
			}
			return interactive(cmd, a.Agent, sessionID)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id for conversation memory")
	return cmd
}

func ask(cmd *cobra.Command, agent *handlers.Agent, sessionID, message string) error {
	resp := agent.HandleMessage(cmd.Context(), models.ChatRequest{Message: message, SessionID: sessionID})
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp.ToChatResponse())
}

func interactive(cmd *cobra.Command, agent *handlers.Agent, sessionID string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Monastery360 assistant. Type 'exit' to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp := agent.HandleMessage(cmd.Context(), models.ChatRequest{Message: line, SessionID: sessionID})
		fmt.Fprintln(out, resp.Message)
		if resp.Action != nil {
			fmt.Fprintf(out, "  [%s -> %s]\n", *resp.Action, *resp.Target)
		}
	}
}

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the actions the agent can perform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTools(cmd.OutOrStdout(), actions.New(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print tool definitions as JSON")
	return cmd
}

func listTools(w io.Writer, catalog *actions.Catalog, asJSON bool) error {
	entries := catalog.Entries()
	if asJSON {
		defs := make([]any, 0, len(entries))
		for _, e := range entries {
			defs = append(defs, toolserver.ToolFor(e))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tACTION\tREQUIRED\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ToolName, e.Kind, strings.Join(e.Required(), ","), e.Description)
	}
	return tw.Flush()
}
