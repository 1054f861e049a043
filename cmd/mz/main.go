package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mzassist/internal/chat"
	"mzassist/internal/config"
	"mzassist/internal/gateway"
	"mzassist/internal/ledger"
	"mzassist/internal/logging"
	"mzassist/internal/poller"
	"mzassist/internal/store"
	"mzassist/internal/tools"
	"mzassist/internal/types"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	configPath string
	dataDir    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mz",
	Short: "MZ - Arabic-first Gemini assistant",
	Long: `MZ is an Arabic-first AI assistant built on the Gemini API.

It offers conversational chat with multiple response modes (including
Google-Search grounding), plus creative tools: image, logo, video,
website, slide, and book generation. Everything you create is recorded
in a local creations ledger.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// runtime bundles the wired core components behind every command.
type runtime struct {
	cfg     *config.Config
	store   *store.Store
	client  *gateway.Client
	ledger  *ledger.Ledger
	tools   *tools.Service
	manager *chat.Manager
}

// newRuntime loads config and wires the store, gateway, ledger, tools,
// and chat manager. Callers must Close it.
func newRuntime() (*runtime, error) {
	path := configPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".mz", "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}
	if apiKey != "" {
		cfg.Gemini.APIKey = apiKey
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}

	if err := logging.Init(cfg.Store.DataDir, cfg.Logging.DebugMode, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	// A user-supplied key in settings takes precedence over config.
	key := cfg.Gemini.APIKey
	if stored := s.LoadSettings().APIKey; stored != "" {
		key = stored
	}

	client := gateway.NewClient(gateway.Config{
		APIKey:     key,
		BaseURL:    cfg.Gemini.BaseURL,
		ChatModel:  cfg.Gemini.Model,
		ImageModel: cfg.Gemini.ImageModel,
		EditModel:  cfg.Gemini.EditModel,
		VideoModel: cfg.Gemini.VideoModel,
		Timeout:    cfg.GatewayTimeout(),
	})

	l, err := ledger.Open(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	tools.ResolveStale(l)

	svc := tools.NewService(client, l, poller.Config{
		StatusInterval:  cfg.StatusInterval(),
		MessageInterval: cfg.MessageInterval(),
		MaxDuration:     cfg.MaxPollDuration(),
	})

	manager, err := chat.Open(s, client, cfg.Chat.TitleLimit, types.ChatMode(cfg.Chat.DefaultMode))
	if err != nil {
		s.Close()
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		store:   s,
		client:  client,
		ledger:  l,
		tools:   svc,
		manager: manager,
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
	logging.Close()
}

// outputDir resolves where generated artifacts are written.
func (rt *runtime) outputDir() (string, error) {
	dir := filepath.Join(rt.cfg.Store.DataDir, "creations")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

func timestampedName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s", prefix, time.Now().Format("20060102_150405"), ext)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.mz/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.mz)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(editImageCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(creationsCmd)
	rootCmd.AddCommand(settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
