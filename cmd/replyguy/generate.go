package main

import (
	"context"
	"fmt"

	"github.com/abdulachik/replyguy/internal/config"
	"github.com/abdulachik/replyguy/internal/feed"
	"github.com/abdulachik/replyguy/internal/filter"
	"github.com/abdulachik/replyguy/internal/reply"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a reply for a given post text",
	Long: `Generate a single reply without touching the browser or the
database. Useful for checking the Ollama setup and tuning the persona.`,
	RunE: runGenerate,
}

var (
	generateText   string
	generateAuthor string
)

func init() {
	generateCmd.Flags().StringVar(&generateText, "text", "", "post text to reply to (required)")
	generateCmd.Flags().StringVar(&generateAuthor, "author", feed.UnknownAuthor, "author handle for prompt context")
	_ = generateCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForGenerate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	f := filter.New(filter.Config{})
	if check := f.Check(generateText); !check.Pass {
		fmt.Printf("Post would be rejected by the filter: %s\n", check.Reason)
		return nil
	}

	generator := reply.NewGenerator(reply.Config{
		Backend: reply.NewOllamaClient(reply.OllamaConfig{
			Host:  cfg.OllamaHost,
			Model: cfg.OllamaModel,
		}),
		MaxAttempts:  cfg.GenerateAttempts,
		BackoffDelay: cfg.GenerateBackoff,
	})

	text := generator.Generate(ctx, generateText, generateAuthor)
	fmt.Println(text)
	return nil
}
