package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/db"
)

type auditEntry struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id,omitempty"`
	Resource  string `json:"resource"`
	Slot      string `json:"slot,omitempty"`
	Stage     string `json:"stage"`
	Outcome   string `json:"outcome"`
	ErrorCode string `json:"error_code,omitempty"`
	CreatedAt string `json:"created_at"`
}

// runAudit lists recorded issuance attempts for one requester, read from
// POSTGRES_DSN.
func runAudit(args []string) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var requesterHex string
	var limit int
	var outPath string
	fs.StringVar(&requesterHex, "requester", "", "requester address")
	fs.IntVar(&limit, "limit", 100, "maximum events")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	requester, err := domain.ParseAddress(requesterHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse requester: %v\n", err)
		return 1
	}

	cfg := config.FromEnv()
	if cfg.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "audit requires POSTGRES_DSN")
		return 1
	}
	store, err := db.NewStore(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 1
	}
	defer store.Close()

	events, err := db.NewIssuanceEventRepository(store.DB).ListByRequester(context.Background(), requester.Hex(), limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list events: %v\n", err)
		return 1
	}
	out := make([]auditEntry, 0, len(events))
	for _, event := range events {
		out = append(out, auditEntry{
			ID:        event.ID,
			RequestID: event.RequestID,
			Resource:  event.Resource,
			Slot:      event.Slot,
			Stage:     string(event.Stage),
			Outcome:   string(event.Outcome),
			ErrorCode: event.ErrorCode,
			CreatedAt: event.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return writeJSON(outPath, out)
}
