// Command weave runs agent workflows from the command line.
//
// Usage:
//
//	weave [flags] list
//	weave [flags] show <name> [--diagram-only]
//	weave [flags] execute <name> [input]
//	weave [flags] resume <id> [checkpoint_id]
//
// Workflows come from the built-in patterns plus any definition files
// in the configured definitions directory. Interrupting execute or
// resume (Ctrl-C) cancels the run at the next safe point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"

	"github.com/convergio/weave/pkg/weave"
	"github.com/convergio/weave/pkg/weave/agent"
	"github.com/convergio/weave/pkg/weave/checkpoint"
	"github.com/convergio/weave/pkg/weave/config"
	"github.com/convergio/weave/pkg/weave/definition"
	"github.com/convergio/weave/pkg/weave/mermaid"
	"github.com/convergio/weave/pkg/weave/observability"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("weave", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (yaml or json)")
	definitions := fs.String("definitions", "", "directory of workflow definition files")
	checkpoints := fs.String("checkpoints", "", "sqlite checkpoint database (default: in-memory)")
	verbose := fs.Bool("verbose", false, "debug logging")
	fs.Usage = usage(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	settings := config.Defaults()
	if *configPath != "" {
		cfg, err := config.FromFile(*configPath)
		if err != nil {
			color.Red("Error: %v", err)
			return 1
		}
		settings = config.SettingsFrom(cfg)
	}
	if *definitions != "" {
		settings.DefinitionDir = *definitions
	}
	if *checkpoints != "" {
		settings.CheckpointPath = *checkpoints
	}
	if *verbose {
		settings.LogLevel = "debug"
	}

	logger := observability.NewLogger(os.Stderr, settings.LogLevel)

	var store checkpoint.Store
	var err error
	if settings.CheckpointPath != "" {
		store, err = checkpoint.NewSQLiteStore(settings.CheckpointPath)
		if err != nil {
			color.Red("Error: open checkpoint store: %v", err)
			return 1
		}
	} else {
		store = checkpoint.NewMemoryStore()
	}
	defer store.Close()

	engine := weave.New(
		weave.WithCapacity(settings.Capacity),
		weave.WithMaxSteps(settings.MaxSteps),
		weave.WithCheckpointStore(store),
		weave.WithLogger(logger),
	)

	opts := []agent.CLIOption{agent.WithTimeout(settings.AgentTimeout)}
	if len(settings.AgentArgs) > 0 {
		opts = append(opts, agent.WithArgs(settings.AgentArgs...))
	}
	engine.Agents().SetFallback(agent.NewCLI(settings.AgentCommand, opts...))

	if err := registerWorkflows(engine, settings.DefinitionDir); err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	switch fs.Arg(0) {
	case "list":
		return cmdList(engine)
	case "show":
		return cmdShow(engine, fs.Args()[1:])
	case "execute":
		return cmdExecute(engine, fs.Args()[1:])
	case "resume":
		return cmdResume(engine, fs.Args()[1:])
	default:
		color.Red("Error: unknown command %q", fs.Arg(0))
		fs.Usage()
		return 1
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "Usage: weave [flags] <command>")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  list                          list registered workflows")
		fmt.Fprintln(os.Stderr, "  show <name> [--diagram-only]  print details and diagram")
		fmt.Fprintln(os.Stderr, "  execute <name> [input]        run a workflow to completion")
		fmt.Fprintln(os.Stderr, "  resume <id> [checkpoint_id]   continue an interrupted run")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
}

// registerWorkflows seeds the engine with the built-in patterns and any
// definitions found on disk.
func registerWorkflows(engine *weave.Engine, dir string) error {
	builtins := []func() (*weave.Graph, error){
		func() (*weave.Graph, error) {
			return weave.ReviewRefineLoop("author", "reviewer", "arbiter", 3)
		},
		func() (*weave.Graph, error) {
			return weave.ParallelAnalysis([]string{"analyst-risk", "analyst-cost", "analyst-market"}, "strategist")
		},
		func() (*weave.Graph, error) {
			return weave.SequentialPlanning([]string{"architect", "planner", "scheduler"})
		},
		func() (*weave.Graph, error) {
			return weave.ConsensusBuilding([]string{"facilitator", "advocate", "skeptic"}, 0.8, 5)
		},
	}
	for _, build := range builtins {
		g, err := build()
		if err != nil {
			return err
		}
		if _, err := engine.Register(g.Name(), g); err != nil {
			return err
		}
	}

	if dir == "" {
		return nil
	}
	graphs, err := definition.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, g := range graphs {
		if _, err := engine.Register(g.Name(), g); err != nil {
			return err
		}
	}
	return nil
}

func cmdList(engine *weave.Engine) int {
	summaries := engine.List()
	if len(summaries) == 0 {
		fmt.Println("No workflows registered.")
		return 0
	}
	color.Cyan("%-4s %-28s %-10s %s", "ID", "NAME", "STATUS", "DESCRIPTION")
	for _, s := range summaries {
		fmt.Printf("%-4d %-28s %-10s %s\n", s.ID, s.Name, s.Status, s.Description)
	}
	return 0
}

func cmdShow(engine *weave.Engine, args []string) int {
	var name string
	diagramOnly := false
	for _, a := range args {
		if a == "--diagram-only" || a == "-d" {
			diagramOnly = true
			continue
		}
		name = a
	}
	if name == "" {
		color.Red("Error: show requires a workflow name")
		return 1
	}

	w, err := engine.FindByName(name)
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	var diagramOpts []mermaid.Option
	if w.Current() != 0 {
		diagramOpts = append(diagramOpts, mermaid.WithCurrentNode(w.Current()))
	}
	diagram, err := mermaid.Export(w.Graph(), diagramOpts...)
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	if diagramOnly {
		fmt.Print(diagram)
		return 0
	}

	color.Cyan("Workflow: %s (id %d)", w.Name(), w.ID())
	if w.Description() != "" {
		fmt.Printf("Description: %s\n", w.Description())
	}
	fmt.Printf("Status: %s\n", w.Status())
	fmt.Printf("Current node: %d\n", w.Current())
	if msg := w.Err(); msg != "" {
		color.Red("Error: %s", msg)
	}
	fmt.Printf("\n```mermaid\n%s```\n", diagram)
	return 0
}

func cmdExecute(engine *weave.Engine, args []string) int {
	if len(args) == 0 {
		color.Red("Error: execute requires a workflow name")
		return 1
	}
	w, err := engine.FindByName(args[0])
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	var input any
	if len(args) > 1 {
		input = args[1]
	}

	return finishRun(w, runInterruptible(engine, w.ID(), func(ctx context.Context) error {
		return engine.Execute(ctx, w.ID(), input)
	}))
}

func cmdResume(engine *weave.Engine, args []string) int {
	if len(args) == 0 {
		color.Red("Error: resume requires a workflow id")
		return 1
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		color.Red("Error: invalid workflow id %q", args[0])
		return 1
	}
	var checkpointID uint64
	if len(args) > 1 {
		checkpointID, err = strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			color.Red("Error: invalid checkpoint id %q", args[1])
			return 1
		}
	}

	w, err := engine.FindByID(id)
	if err != nil {
		color.Red("Error: %v", err)
		return 1
	}

	return finishRun(w, runInterruptible(engine, id, func(ctx context.Context) error {
		return engine.Resume(ctx, id, checkpointID)
	}))
}

// runInterruptible runs fn, translating the first interrupt into a
// cooperative cancel so the in-flight agent call finishes first.
func runInterruptible(engine *weave.Engine, id uint64, fn func(context.Context) error) error {
	ctx := context.Background()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			color.Yellow("Interrupt received, cancelling at next safe point...")
			engine.Cancel(id)
		case <-done:
		}
	}()

	return fn(ctx)
}

func finishRun(w *weave.Workflow, err error) int {
	if err != nil {
		color.Red("Workflow %s %s: %v", w.Name(), w.Status(), err)
		return 1
	}
	color.Green("Workflow %s completed.", w.Name())
	if out, ok := w.Context().Get(weave.OutputKey); ok {
		fmt.Printf("Output: %v\n", out)
	}
	return 0
}
