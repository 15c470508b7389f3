package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/fitplan/pkg/adapter"
	"github.com/m-mizutani/fitplan/pkg/prompt"
	"github.com/m-mizutani/fitplan/pkg/repository"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	storeMemory    = "memory"
	storePostgres  = "postgres"
	storeFirestore = "firestore"

	providerHuggingFace = "huggingface"
	providerGemini      = "gemini"
	providerOpenAI      = "openai"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	store      string
	dsn        string
	serviceKey string
	project    string
	database   string

	// Models
	embedder           string
	completer          string
	hfAPIKey           string
	hfCompletionAPIKey string
	embeddingModel     string
	embeddingDimension int64
	embedRateLimit     float64
	completionModel    string
	maxNewTokens       int64
	geminiProject      string
	geminiLocation     string
	openaiAPIKey       string
	openaiBaseURL      string

	// Pipeline
	topK          int64
	profilesPath  string
	archiveBucket string
	archivePrefix string
	noSavePlans   bool
}

// globalFlags returns logging and repository flags used across commands
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("FITPLAN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("FITPLAN_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Document store (postgres, firestore, memory)",
			Value:       storePostgres,
			Sources:     cli.EnvVars("FITPLAN_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "db-url",
			Usage:       "Postgres connection URL, e.g. the Supabase database URL",
			Sources:     cli.EnvVars("SUPABASE_DB_URL"),
			Destination: &cfg.dsn,
		},
		&cli.StringFlag{
			Name:        "service-key",
			Usage:       "Privileged database key, used as the Postgres password",
			Sources:     cli.EnvVars("SUPABASE_SERVICE_ROLE_KEY"),
			Destination: &cfg.serviceKey,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// llmFlags returns flags for embedding and completion models
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding provider (huggingface, gemini, openai)",
			Value:       providerHuggingFace,
			Sources:     cli.EnvVars("FITPLAN_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.StringFlag{
			Name:        "completer",
			Usage:       "Completion provider (huggingface, gemini, openai)",
			Value:       providerHuggingFace,
			Sources:     cli.EnvVars("FITPLAN_COMPLETER"),
			Destination: &cfg.completer,
		},
		&cli.StringFlag{
			Name:        "hf-api-key",
			Usage:       "Hugging Face API key for feature extraction",
			Sources:     cli.EnvVars("HF_API_KEY"),
			Destination: &cfg.hfAPIKey,
		},
		&cli.StringFlag{
			Name:        "hf-completion-api-key",
			Usage:       "Hugging Face API key for chat completion",
			Sources:     cli.EnvVars("HF_COMPLETION_API_KEY"),
			Destination: &cfg.hfCompletionAPIKey,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model, provider default if empty",
			Sources:     cli.EnvVars("FITPLAN_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Expected embedding dimension, 0 disables the check",
			Sources:     cli.EnvVars("FITPLAN_EMBEDDING_DIMENSION"),
			Destination: &cfg.embeddingDimension,
		},
		&cli.FloatFlag{
			Name:        "embed-rate-limit",
			Usage:       "Maximum Hugging Face embedding requests per second, 0 for unlimited",
			Sources:     cli.EnvVars("FITPLAN_EMBED_RATE_LIMIT"),
			Destination: &cfg.embedRateLimit,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Completion model",
			Value:       rag.DefaultModel,
			Sources:     cli.EnvVars("FITPLAN_MODEL"),
			Destination: &cfg.completionModel,
		},
		&cli.IntFlag{
			Name:        "max-new-tokens",
			Usage:       "Generation length cap of completion requests",
			Value:       adapter.DefaultMaxNewTokens,
			Sources:     cli.EnvVars("FITPLAN_MAX_NEW_TOKENS"),
			Destination: &cfg.maxNewTokens,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible API",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
	}
}

// pipelineFlags returns flags tuning retrieval and plan handling
func pipelineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of context documents retrieved per request",
			Value:       5,
			Sources:     cli.EnvVars("FITPLAN_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.StringFlag{
			Name:        "profiles",
			Usage:       "YAML file with model specific prompt templates",
			Sources:     cli.EnvVars("FITPLAN_PROFILES"),
			Destination: &cfg.profilesPath,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket generated plans are archived to",
			Sources:     cli.EnvVars("FITPLAN_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object prefix of archived plans",
			Value:       "plans",
			Sources:     cli.EnvVars("FITPLAN_ARCHIVE_PREFIX"),
			Destination: &cfg.archivePrefix,
		},
		&cli.BoolFlag{
			Name:        "no-save-plans",
			Usage:       "Do not store generated plans as new plans",
			Sources:     cli.EnvVars("FITPLAN_NO_SAVE_PLANS"),
			Destination: &cfg.noSavePlans,
		},
	}
}

// allFlags returns every flag of a pipeline command
func allFlags(cfg *config, extra ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{}, extra...)
	flags = append(flags, globalFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, pipelineFlags(cfg)...)
	return flags
}

// setupLogger installs the configured logger as default and returns a context
// carrying it. Logs go to w, which must not be the MCP stdio channel.
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) (context.Context, *slog.Logger, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return ctx, nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	logger := logging.NewWithFormat(cfg.logLevel, format, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), logger, nil
}

// newStore creates the configured document store
func (cfg *config) newStore(ctx context.Context) (repository.Store, error) {
	switch cfg.store {
	case storeMemory:
		return repository.NewMemory(), nil

	case storePostgres:
		if cfg.dsn == "" {
			return nil, goerr.New("db-url is required")
		}
		if cfg.serviceKey == "" {
			return nil, goerr.New("service-key is required")
		}
		repo, err := repository.NewPostgres(ctx, cfg.postgresConfig())
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create postgres repository")
		}
		return repo, nil

	case storeFirestore:
		if cfg.project == "" {
			return nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, goerr.New("database is required")
		}
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unsupported store", goerr.V("store", cfg.store))
	}
}

func (cfg *config) postgresConfig() repository.PostgresConfig {
	return repository.PostgresConfig{DSN: cfg.dsn, ServiceKey: cfg.serviceKey}
}

// newEmbedder creates the configured embedding client
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embedder {
	case providerHuggingFace:
		if cfg.hfAPIKey == "" {
			return nil, goerr.New("hf-api-key is required")
		}
		opts := []adapter.HuggingFaceEmbedderOption{
			adapter.WithEmbedderRateLimit(cfg.embedRateLimit, 1),
		}
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithEmbedderModel(cfg.embeddingModel))
		}
		return adapter.NewHuggingFaceEmbedder(cfg.hfAPIKey, opts...), nil

	case providerGemini:
		var opts []adapter.GeminiOption
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithGeminiEmbeddingModel(cfg.embeddingModel))
		}
		if cfg.embeddingDimension > 0 {
			opts = append(opts, adapter.WithGeminiDimensionality(int(cfg.embeddingDimension)))
		}
		return cfg.newGemini(ctx, opts...)

	case providerOpenAI:
		var opts []adapter.OpenAIOption
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithOpenAIEmbeddingModel(cfg.embeddingModel))
		}
		if cfg.embeddingDimension > 0 {
			opts = append(opts, adapter.WithOpenAIDimensions(int(cfg.embeddingDimension)))
		}
		return cfg.newOpenAI(opts...)

	default:
		return nil, goerr.New("unsupported embedder", goerr.V("embedder", cfg.embedder))
	}
}

// newCompleter creates the configured completion client
func (cfg *config) newCompleter(ctx context.Context) (adapter.Completer, error) {
	maxTokens := int(cfg.maxNewTokens)

	switch cfg.completer {
	case providerHuggingFace:
		if cfg.hfCompletionAPIKey == "" {
			return nil, goerr.New("hf-completion-api-key is required")
		}
		return adapter.NewHuggingFaceCompleter(cfg.hfCompletionAPIKey, adapter.WithMaxNewTokens(maxTokens)), nil

	case providerGemini:
		return cfg.newGemini(ctx, adapter.WithGeminiMaxOutputTokens(maxTokens))

	case providerOpenAI:
		return cfg.newOpenAI(adapter.WithOpenAIMaxTokens(maxTokens))

	default:
		return nil, goerr.New("unsupported completer", goerr.V("completer", cfg.completer))
	}
}

func (cfg *config) newGemini(ctx context.Context, opts ...adapter.GeminiOption) (*adapter.GeminiClient, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

func (cfg *config) newOpenAI(opts ...adapter.OpenAIOption) (*adapter.OpenAIClient, error) {
	if cfg.openaiAPIKey == "" {
		return nil, goerr.New("openai-api-key is required")
	}
	if cfg.openaiBaseURL != "" {
		opts = append(opts, adapter.WithOpenAIBaseURL(cfg.openaiBaseURL))
	}
	return adapter.NewOpenAI(cfg.openaiAPIKey, opts...)
}

// pipeline bundles what a pipeline command needs. close releases the store
// and the archive.
type pipeline struct {
	store   repository.Store
	usecase *rag.UseCase
	close   func()
}

// newPipeline wires store, models, profiles and archive into a rag UseCase
func (cfg *config) newPipeline(ctx context.Context) (*pipeline, error) {
	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, err
	}
	closers := []func() error{store.Close}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logging.From(ctx).Warn("failed to close resource", "error", err)
			}
		}
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		closeAll()
		return nil, err
	}
	completer, err := cfg.newCompleter(ctx)
	if err != nil {
		closeAll()
		return nil, err
	}

	opts := []rag.Option{
		rag.WithModel(cfg.completionModel),
		rag.WithTopK(int(cfg.topK)),
		rag.WithDimension(int(cfg.embeddingDimension)),
		rag.WithSavePlans(!cfg.noSavePlans),
	}

	if cfg.profilesPath != "" {
		profiles, err := prompt.LoadProfilesFile(cfg.profilesPath)
		if err != nil {
			closeAll()
			return nil, err
		}
		opts = append(opts, rag.WithProfiles(profiles))
	}

	if cfg.archiveBucket != "" {
		archive, err := adapter.NewStorageArchive(ctx, cfg.archiveBucket, cfg.archivePrefix)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, archive.Close)
		opts = append(opts, rag.WithArchive(archive))
	}

	return &pipeline{
		store:   store,
		usecase: rag.New(store, embedder, completer, opts...),
		close:   closeAll,
	}, nil
}
