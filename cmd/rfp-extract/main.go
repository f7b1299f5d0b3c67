package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/genai"
)

// rfp-extract runs one extraction over free text from a file or stdin and
// prints the JSON envelope. Useful for checking what the fallback parser
// makes of a request before creating it over the API.
func main() {
	inputPath := flag.String("input", "-", "Input file, or - for stdin")
	asProposal := flag.Bool("proposal", false, "Parse as a vendor proposal instead of a purchase request")
	noGenerative := flag.Bool("no-generative", false, "Skip the generative service even if configured")
	flag.Parse()

	_ = godotenv.Load()

	text, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var generative extract.Parser
	if !*noGenerative {
		caller, err := genai.NewCallerFromEnv(genai.DefaultTimeout)
		if err == nil {
			generative = extract.NewGenerativeParser(caller)
		} else if !errors.Is(err, genai.ErrNotConfigured) {
			log.Fatalf("generative service: %v", err)
		}
	}
	svc := extract.NewService(generative)

	var out any
	if *asProposal {
		out = svc.ExtractProposal(context.Background(), text)
	} else {
		out = svc.ExtractRFP(context.Background(), text)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		blob, err := io.ReadAll(os.Stdin)
		return string(blob), err
	}
	blob, err := os.ReadFile(path)
	return string(blob), err
}
