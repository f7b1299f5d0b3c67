package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/procureflow/procureflow/internal/compare"
	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/genai"
	"github.com/procureflow/procureflow/internal/report"
	"github.com/procureflow/procureflow/internal/store"
)

// comparisonInput is the offline input file shape: the RFP extraction plus
// the parsed proposals to rank.
type comparisonInput struct {
	RFP       extract.ExtractionResult `json:"rfp"`
	Proposals []compare.VendorProposal `json:"proposals"`
}

func main() {
	inputPath := flag.String("input", "", "JSON file with rfp and proposals")
	pdfPath := flag.String("pdf", "", "Also render the report to this PDF path")
	noGenerative := flag.Bool("no-generative", false, "Skip the generative service even if configured")
	flag.Parse()

	_ = godotenv.Load()

	if *inputPath == "" {
		log.Fatal("--input is required")
	}
	blob, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	var in comparisonInput
	if err := json.Unmarshal(blob, &in); err != nil {
		log.Fatalf("parse input: %v", err)
	}

	var caller genai.Caller
	if !*noGenerative {
		c, err := genai.NewCallerFromEnv(genai.DefaultTimeout)
		if err == nil {
			caller = c
		} else if !errors.Is(err, genai.ErrNotConfigured) {
			log.Fatalf("generative service: %v", err)
		}
	}

	ctx := context.Background()
	outcome := compare.NewEngine(caller).Compare(ctx, in.RFP, in.Proposals)
	if !outcome.Success {
		log.Fatalf("comparison failed: %s", outcome.Error)
	}

	markdown := report.BuildComparisonMarkdown(store.RFP{Extraction: in.RFP}, len(in.Proposals), *outcome.Data)
	fmt.Print(markdown)

	if *pdfPath != "" {
		pdf, err := report.NewChromiumPDFRenderer().Render(ctx, markdown)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		log.Printf("wrote %s (%d bytes)", *pdfPath, len(pdf))
	}
}
