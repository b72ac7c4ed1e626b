package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/chat"
	"github.com/storehouse-ng/storefront-chat/internal/config"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	"github.com/storehouse-ng/storefront-chat/internal/guard"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/llm"
	"github.com/storehouse-ng/storefront-chat/internal/models"
	"github.com/storehouse-ng/storefront-chat/internal/responder"
	"github.com/storehouse-ng/storefront-chat/internal/store"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Run the spam and off-topic guardrails on a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := guard.Classify(strings.Join(args, " "))
			if asJSON {
				return printJSON(v)
			}
			fmt.Println(renderVerdict(v))
			return nil
		},
	}
}

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <message>",
		Short: "Detect the language of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("languages")
			langs, err := language.Load(path)
			if err != nil {
				return err
			}
			tag := langs.Detect(strings.Join(args, " "))
			if asJSON {
				return printJSON(map[string]string{"language": string(tag)})
			}
			fmt.Println(tag)
			return nil
		},
	}
	cmd.Flags().String("languages", "", "Language table YAML (default: built-in)")
	return cmd
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run a message through the full chat pipeline against a fixtures catalog",
		Long: `Run a message through the full chat pipeline against a YAML fixtures catalog
with in-memory session state. The language model is taken from the environment
(LLM_PROVIDER, OPENAI_API_KEY or ANTHROPIC_API_KEY); without a key, answers fall
back to the static per-language message.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, _ := cmd.Flags().GetString("fixtures")
			slug, _ := cmd.Flags().GetString("store")
			session, _ := cmd.Flags().GetString("session")
			if session == "" {
				session = uuid.NewString()
			}

			pipeline, err := localPipeline(fixtures, cliLogger())
			if err != nil {
				return err
			}
			res := pipeline.HandleChat(cmd.Context(), chat.Request{
				Message:   strings.Join(args, " "),
				StoreSlug: slug,
				SessionID: session,
			})
			if asJSON {
				return printJSON(res)
			}
			fmt.Print(renderResult(res))
			return nil
		},
	}
	cmd.Flags().String("fixtures", "", "Catalog fixtures YAML")
	cmd.Flags().String("store", "", "Store slug")
	cmd.Flags().String("session", "", "Session ID (default: a new one)")
	_ = cmd.MarkFlagRequired("fixtures")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

// localPipeline wires the pipeline the way the service does, minus the network edges.
func localPipeline(fixtures string, logger zerolog.Logger) (*chat.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fp, err := catalog.LoadFileProvider(fixtures)
	if err != nil {
		return nil, err
	}
	langs, err := language.Load(cfg.LanguagesFile)
	if err != nil {
		return nil, err
	}
	provider, err := llm.New(llm.Settings{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey(),
		BaseURL:  cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	state := convstate.NewMemoryStore(convstate.MemoryConfig{Capacity: 100, TTL: cfg.StateTTL})
	return chat.New(chat.Config{
		MaxMessagesPerSession: cfg.MaxMessagesPerSession,
		MaxMessagesPerMinute:  cfg.MaxMessagesPerMinute,
	}, chat.Deps{
		Limiter: convstate.NewLimiter(state, convstate.LimiterConfig{
			OffTopicThreshold: cfg.OffTopicThreshold,
			BlockTTL:          cfg.BlockTTL,
		}, logger),
		Stores: catalog.NewLoader(fp, cfg.CatalogTimeout, 1, logger),
		Responder: responder.New(provider, langs, responder.Config{
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		}, logger),
	}, logger), nil
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset a session in the SQLite state database",
	}
	cmd.PersistentFlags().String("db", "storefront-chat.db", "SQLite state database")

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the conversation state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLimiter(cmd, func(ctx context.Context, l *convstate.Limiter) error {
				s, ok, err := l.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("session %s not found", args[0])
				}
				if asJSON {
					return printJSON(s)
				}
				fmt.Print(renderState(s))
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset <session-id>",
		Short: "Forget a session, lifting any block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLimiter(cmd, func(ctx context.Context, l *convstate.Limiter) error {
				if err := l.Reset(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Session %s reset\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func withLimiter(cmd *cobra.Command, fn func(ctx context.Context, l *convstate.Limiter) error) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	return fn(ctx, convstate.NewLimiter(st, convstate.LimiterConfig{}, cliLogger()))
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	st, err := store.New(path, store.Config{}, cliLogger())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return st, nil
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent chat events",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("store")
			session, _ := cmd.Flags().GetString("session")
			limit, _ := cmd.Flags().GetInt("limit")

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.ListEvents(cmd.Context(), models.EventFilter{
				StoreSlug: slug,
				SessionID: session,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				if events == nil {
					events = []models.ChatEvent{}
				}
				return printJSON(events)
			}
			fmt.Println(renderEvents(events))
			return nil
		},
	}
	cmd.Flags().String("db", "storefront-chat.db", "SQLite state database")
	cmd.Flags().String("store", "", "Only events for this store slug")
	cmd.Flags().String("session", "", "Only events for this session")
	cmd.Flags().Int("limit", 50, "Maximum events to list")
	return cmd
}
