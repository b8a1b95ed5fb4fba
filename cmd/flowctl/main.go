// Command flowctl is a demo and inspection CLI for the dataflow
// constraint solver: it loads a component (the built-in a+b=c demo,
// optionally overridden by a --component YAML file), solves it once
// and prints the result as JSON, or watches it live in a Bubble Tea
// board as events arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/corewave/dataflow/internal/bootstrap"
	"github.com/corewave/dataflow/internal/component"
	"github.com/corewave/dataflow/internal/events"
	"github.com/corewave/dataflow/internal/logging"
	"github.com/corewave/dataflow/internal/output"
	"github.com/corewave/dataflow/internal/tui"
	"github.com/corewave/dataflow/internal/value"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "flowctl.yaml", "path to the YAML config file")
	componentPath := fs.String("component", "", "path to a YAML file overriding the demo component's variables")
	verbose := fs.Bool("verbose", false, "enable verbose bootstrap logging")
	timeout := fs.Duration("timeout", 10*time.Second, "solve timeout")

	command := os.Args[1]
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	switch command {
	case "run":
		if err := runOnce(*configPath, *componentPath, *verbose, *timeout); err != nil {
			log.Fatalf("run failed: %v", err)
		}
	case "watch":
		if err := watch(*configPath, *componentPath, *verbose); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flowctl <run|watch> [-config path] [-component path] [-verbose] [-timeout duration]")
}

func buildComponent(configPath, componentPath string, verbose bool) (*bootstrap.ServiceDependencies, *component.Component, error) {
	deps, _, err := bootstrap.InitializeServices(bootstrap.InitOptions{ConfigPath: configPath, Verbose: verbose})
	if err != nil {
		return nil, nil, err
	}

	opts := component.Options{
		ThreadPoolSize:        deps.Config.ThreadPoolSize,
		MaxJournalEntries:     deps.Config.MaxJournalEntries,
		DefaultStay:           deps.Config.DefaultStay,
		EmitOk:                deps.Config.EmitOk,
		OverconstrainedPolicy: deps.Config.Policy(),
	}
	c := component.New(demoSpec(), opts)
	deps.System.AddComponent("demo", c)

	overrides, err := loadOverrides(componentPath)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range overrides {
		id, ok := variableByName(o.Name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown variable %q in component file", o.Name)
		}
		if err := c.SetVariable(id, value.Float64(o.Initial)); err != nil {
			return nil, nil, fmt.Errorf("failed to apply override for %q: %w", o.Name, err)
		}
	}

	return deps, c, nil
}

func runOnce(configPath, componentPath string, verbose bool, timeout time.Duration) error {
	_, c, err := buildComponent(configPath, componentPath, verbose)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Update(ctx); err != nil {
		return output.WriteJSON(os.Stdout, output.ErrorResponse(err))
	}

	result := make(map[string]interface{})
	for _, name := range []string{"a", "b", "c"} {
		id, _ := variableByName(name)
		v, err := c.Value(id)
		if err != nil {
			continue
		}
		result[name] = v.GoString()
	}
	return output.WriteJSONData(os.Stdout, result)
}

func watch(configPath, componentPath string, verbose bool) error {
	_, c, err := buildComponent(configPath, componentPath, verbose)
	if err != nil {
		return err
	}

	sub, unsub := c.Subscribe(events.Wildcard)
	defer unsub()

	board := tui.NewBoardModel()
	program := tea.NewProgram(board)

	// The board owns the alt-screen for the life of the program: route
	// logging there instead of stderr, or every Info/Warn call would
	// tear through the live display.
	logging.Default().SetOutput(tui.NewLogWriter(program))
	defer logging.Default().SetOutput(os.Stderr)

	go func() {
		for ev := range sub {
			program.Send(tui.VariableEventMsg(ev))
		}
	}()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Update(ctx); err != nil {
			logging.Error("update failed: %v", err)
		}
	}()

	_, err = program.Run()
	return err
}
