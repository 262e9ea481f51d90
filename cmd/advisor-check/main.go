package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/external/openai"
)

// advisor-check sends one sample claim to the review advisor and prints the advice.
func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	baseURL := flag.String("base-url", "", "Alternative API base URL (or set OPENAI_BASE_URL)")
	model := flag.String("model", "gpt-4o-mini", "Chat model")
	promptsPath := flag.String("prompts", "", "Optional prompts YAML file")
	timeout := flag.Duration("timeout", 30*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	_ = gotenv.Load()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *baseURL == "" {
		*baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "ERROR: OPENAI_API_KEY not set and no --key flag provided")
		os.Exit(1)
	}

	prompts := openai.DefaultPrompts()
	if *promptsPath != "" {
		prompts, err = openai.LoadPrompts(*promptsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to load prompts: %v\n", err)
			os.Exit(1)
		}
	}

	var advisor port.Advisor = openai.NewAdvisor(openai.Config{
		APIKey:  *apiKey,
		BaseURL: *baseURL,
		Model:   *model,
		Timeout: *timeout,
	}, prompts, logger)

	now := time.Now().UTC()
	req := &port.AdviceRequest{
		Claim: &entity.Claim{
			ID:               "sample-claim",
			SubmitterID:      "sample-employee",
			ClaimTypeID:      "ct-003",
			Desc1:            "Taxi to client office",
			Desc2:            "Round trip for quarterly review meeting",
			TransactionDate:  now.AddDate(0, 0, -3),
			TransactionTotal: decimal.RequireFromString("185000"),
			SubmittedAt:      now,
		},
		ClaimType: &entity.ClaimType{ID: "ct-003", Name: "Perjalanan Dinas"},
		Submitter: &entity.User{ID: "sample-employee", Name: "Sample Employee", Role: entity.RoleEmployee},
		Attachments: []entity.Attachment{
			{FileName: "receipt.pdf", MimeType: "application/pdf", PageCount: 1},
		},
	}

	fmt.Printf("Model: %s\n", *model)
	fmt.Printf("Timeout: %v\n\n", *timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	advice, err := advisor.Advise(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: advisor call failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Response time: %v\n", time.Since(start))
	out, _ := json.MarshalIndent(advice, "", "  ")
	fmt.Println(string(out))
}
