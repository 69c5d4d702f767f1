package main

import (
	"fmt"
	"os"

	"github.com/kadirpekel/agiloop/agievent"
)

// printer formats an event stream to the terminal, grounded on
// pkg/cli/agui_handler.go's per-event-kind switch and colorized
// start/stop glyphs — adapted to agievent.Event and deliberately not a
// TUI (spec Non-goal on terminal rendering).
type printer struct {
	verbose   bool
	useColors bool
}

func (p *printer) handle(ev agievent.Event) {
	switch ev.Kind {
	case agievent.KindRunStarted:
		if p.verbose {
			fmt.Printf("\n[run %s started]\n", ev.RunID)
		}
	case agievent.KindRunFinished:
		if p.verbose {
			fmt.Printf("\n[run %s finished]\n", ev.RunID)
		}
	case agievent.KindRunError:
		p.colorLine(31, fmt.Sprintf("\n[run %s error: %s]\n", ev.RunID, ev.Error))
	case agievent.KindStepStarted:
		if p.verbose {
			fmt.Printf("[step %s started]\n", ev.StepID)
		}
	case agievent.KindTextMessageContent, agievent.KindTextMessageChunk:
		fmt.Print(ev.Delta)
		os.Stdout.Sync()
	case agievent.KindToolCallStart:
		fmt.Printf("\U0001F527 %s ", ev.ToolName)
		os.Stdout.Sync()
	case agievent.KindToolCallResult:
		if ev.IsError {
			p.colorLine(31, "✗\n")
			if p.verbose && ev.Result != "" {
				fmt.Printf("  error: %s\n", ev.Result)
			}
		} else {
			p.colorLine(32, "✓\n")
		}
	case agievent.KindCustom:
		if ev.Name == "AUTHORIZATION_REQUESTED" {
			toolName := ev.ToolName
			if v, ok := ev.Value.(map[string]any); ok {
				toolName, _ = v["tool_name"].(string)
			}
			fmt.Printf("\n[authorization requested for %s]\n", toolName)
		}
	}
}

func (p *printer) colorLine(code int, s string) {
	if p.useColors {
		fmt.Printf("\033[%dm%s\033[0m", code, s)
		return
	}
	fmt.Print(s)
}
