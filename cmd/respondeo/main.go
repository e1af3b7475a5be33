package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/agent"
	"github.com/ternarybob/respondeo/internal/services/events"
	"github.com/ternarybob/respondeo/internal/services/ingest"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/retrieval"
	"github.com/ternarybob/respondeo/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: respondeo [flags] <command> [args]

Commands:
  ask "<question>"   Answer a question from the indexed corpus
  ingest <path>      Ingest a markdown file or directory into the index
  stats              Print index statistics

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Respondeo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("respondeo.toml"); err == nil {
			configFiles = append(configFiles, "respondeo.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	// Cancel in-flight work on Ctrl+C
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "ask":
		err = runAsk(ctx, flag.Arg(1))
	case "ingest":
		err = runIngest(ctx, flag.Arg(1))
	case "stats":
		err = runStats(ctx)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}

// openIndex builds the embedder and opens the Badger-backed vector index
func openIndex(ctx context.Context) (interfaces.VectorIndex, error) {
	embedder, err := llm.NewEmbedder(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	index, err := badger.NewVectorIndex(logger, &config.Storage.Badger, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	return index, nil
}

func runAsk(ctx context.Context, question string) error {
	if question == "" {
		return fmt.Errorf("usage: respondeo ask \"<question>\"")
	}

	index, err := openIndex(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	eventService := events.NewService(logger)
	defer eventService.Close()
	if err := eventService.Subscribe(interfaces.EventReasoningStep, events.NewProgressLogger(logger)); err != nil {
		return err
	}

	fallback := llm.NewOfflineResponder()
	responder, err := llm.NewResponder(ctx, config, logger)
	if err != nil {
		// Answers degrade to the extractive summary when no provider is usable
		logger.Warn().Err(err).Msg("No LLM provider available, using offline responder")
		responder = fallback
	}

	coordinator := retrieval.NewCoordinator(index, retrieval.NewSidecarCache(logger), logger)
	machine := agent.NewMachine(coordinator, responder, fallback, eventService, logger)

	state := machine.Ask(ctx, question, config.AskModel())

	fmt.Println(state.Answer)
	if len(state.Citations) > 0 {
		fmt.Printf("\nCitations: %v\n", state.Citations)
	}
	if state.Error != "" {
		fmt.Printf("\nRetrieval error: %s\n", state.Error)
	}
	fmt.Println("\nReasoning trail:")
	for _, step := range state.Reasoning {
		fmt.Printf("  %-16s %s\n", step.Label, step.Detail)
	}
	return nil
}

func runIngest(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: respondeo ingest <path>")
	}

	index, err := openIndex(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	eventService := events.NewService(logger)
	defer eventService.Close()

	service := ingest.NewService(index, eventService, config, logger)
	results, err := service.IngestPath(ctx, path)
	if err != nil {
		return err
	}

	for _, result := range results {
		fmt.Printf("%s: %d paragraphs, %d chunks (sidecar: %s)\n",
			result.SourcePath, result.ParagraphCount, result.ChunkCount, result.SidecarPath)
	}
	return nil
}

func runStats(ctx context.Context) error {
	index, err := openIndex(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	stats, err := index.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Documents: %d\nChunks:    %d\n", stats.DocumentCount, stats.ChunkCount)
	for source, count := range stats.ChunksBySource {
		fmt.Printf("  %s: %d\n", source, count)
	}
	return nil
}
