package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"recall/internal/embedding"
	"recall/internal/engine"
	"recall/internal/llm"
	"recall/internal/store"
	"recall/internal/types"
)

var threadID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against your meeting archive",
	Long: `Runs the full retrieval pipeline: classifies the question, resolves
person anchors, collects evidence from transcripts, attachments,
summaries, and the vector index in parallel, and synthesizes a
citation-grounded answer.

Example:
  recall ask "What did Dana say about pricing?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id (default thread when empty)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if ownerID == "" {
		return fmt.Errorf("no owner id: set --owner or RECALL_OWNER")
	}
	question := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		GenAIAPIKey:    cfg.Embedding.APIKey,
		GenAIModel:     cfg.Embedding.Model,
		TaskType:       "RETRIEVAL_QUERY",
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
	})
	if err != nil {
		return err
	}

	gen, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLMTimeout(),
	})
	if err != nil {
		return err
	}

	engCfg := engine.DefaultConfig()
	engCfg.MaxExactMentions = cfg.Retrieval.MaxExactMentions
	engCfg.SessionCap = cfg.Retrieval.SessionCap
	engCfg.VectorThreshold = cfg.Retrieval.VectorThreshold
	engCfg.VectorLimit = cfg.Retrieval.VectorLimit
	engCfg.GenerateTimeout = cfg.LLMTimeout()

	eng := engine.New(st, embedder, gen, engCfg, logger)

	resp, err := eng.Ask(ctx, types.AskRequest{
		OwnerID:  ownerID,
		ThreadID: threadID,
		Question: question,
	})
	if err != nil {
		return err
	}

	printResponse(resp)
	return nil
}

func printResponse(resp *types.AskResponse) {
	fmt.Println(resp.Answer)

	if len(resp.Paragraphs) > 0 {
		fmt.Println()
		for i, p := range resp.Paragraphs {
			fmt.Printf("  [%d] cites %s\n", i+1, strings.Join(p.Citations, ", "))
		}
	}

	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range resp.Sources {
			fmt.Printf("  - %s (%s)\n    %s\n    %s\n", src.Title, src.Kind, src.Snippet, src.Link)
		}
	}
}
