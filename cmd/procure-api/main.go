package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/procureflow/procureflow/internal/compare"
	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/genai"
	"github.com/procureflow/procureflow/internal/httpapi"
	"github.com/procureflow/procureflow/internal/inbox"
	"github.com/procureflow/procureflow/internal/mailer"
	"github.com/procureflow/procureflow/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	records, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer records.Close()

	var caller genai.Caller
	anthropicCaller, err := genai.NewCallerFromEnv(cfg.GenerativeTimeout())
	switch {
	case err == nil:
		caller = anthropicCaller
		log.Printf("generative service configured (timeout=%s)", cfg.GenerativeTimeout())
	case errors.Is(err, genai.ErrNotConfigured):
		log.Printf("generative service not configured; deterministic fallbacks only")
	default:
		log.Fatalf("generative service: %v", err)
	}

	var generative extract.Parser
	if caller != nil {
		generative = extract.NewGenerativeParser(caller)
	}
	extractor := extract.NewService(generative)
	engine := compare.NewEngine(caller)
	composer := mailer.NewComposer(caller)

	var sender mailer.Sender
	if cfg.SMTP.Host != "" {
		var auth smtp.Auth
		if cfg.SMTP.Username != "" {
			auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
		}
		sender = mailer.NewSMTPSender(fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port), cfg.SMTP.From, auth)
		log.Printf("smtp sender configured (host=%s from=%s)", cfg.SMTP.Host, cfg.SMTP.From)
	} else {
		sender = discardSender{}
		log.Printf("smtp not configured; outbound mail is logged and discarded")
	}

	mailbox := inbox.NewMemoryPoller()
	ingestor := inbox.NewIngestor(mailbox, records, extractor)

	handler := httpapi.NewServer(records, extractor, engine, composer, sender, ingestor, mailbox)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go ingestor.Run(ctx, cfg.InboxPollInterval())
	log.Printf("inbox poll loop started (interval=%s)", cfg.InboxPollInterval())

	log.Printf("procure-api listening on %s (db=%s)", cfg.ListenAddr, cfg.DBPath)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// discardSender stands in when no SMTP host is configured, so local runs
// can exercise the full send path without a mail server.
type discardSender struct{}

func (discardSender) Send(ctx context.Context, to string, email mailer.Email) mailer.SendResult {
	log.Printf("discarding outbound mail to=%s subject=%q", to, email.Subject)
	return mailer.SendResult{Success: true, MessageID: "discarded"}
}
