// Package main is the terminal front end: a thin cobra CLI that drives
// the agent facade in-process and renders its event stream to stdout,
// grounded on cobra usage in the pack (e.g.
// haasonsaas-nexus/cmd/nexus's builder-function command style) and on
// pkg/cli/agui_handler.go's event-to-terminal rendering (see printer.go)
// — deliberately not a TUI, per spec.md §1's Non-goal on terminal
// rendering.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kadirpekel/agiloop/agent"
	"github.com/kadirpekel/agiloop/agiconfig"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/agitool"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var threadID string
	var verbose bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "agiloopcli",
		Short: "Chat with an agiloop agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath, threadID, verbose, !noColor)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agiloop.yaml", "path to the agent configuration file")
	cmd.Flags().StringVarP(&threadID, "thread", "t", "cli-session", "conversation thread id")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show step/run lifecycle events in addition to text")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI color output")
	cmd.AddCommand(buildClearCmd(&configPath, &threadID))
	return cmd
}

func buildClearCmd(configPath, threadID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation memory for the current thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := agiconfig.LoadFile(*configPath)
			if err != nil {
				return err
			}
			h, err := agent.New(cfg, agitool.NewRegistry())
			if err != nil {
				return err
			}
			return h.ClearMemory(context.Background(), *threadID)
		},
	}
}

func runChat(configPath, threadID string, verbose, useColors bool) error {
	cfg, err := agiconfig.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	h, err := agent.New(cfg, agitool.NewRegistry())
	if err != nil {
		return fmt.Errorf("build agent handler: %w", err)
	}

	p := &printer{verbose: verbose, useColors: useColors}
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("agiloopcli ready — type a message and press enter (Ctrl+D to quit)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		in := agimsg.NewRunAgentInput(threadID, []agimsg.Message{agimsg.NewUserMessage(line)})
		events, err := h.HandleRun(context.Background(), in)
		if err != nil {
			fmt.Fprintln(os.Stderr, "run failed:", err)
			continue
		}
		for ev := range events {
			p.handle(ev)
		}
		fmt.Println()
	}
}
