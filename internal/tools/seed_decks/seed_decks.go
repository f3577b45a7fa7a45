package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyisaiah47/deep-cut-sub000/internal/dbconfig"
)

// Deck mirrors the JSON deck file layout
type Deck struct {
	Prompts   []string `json:"prompts"`
	Responses []string `json:"responses"`
}

func main() {
	var (
		file = flag.String("file", "internal/cards/assets/deck.json", "path to deck JSON file")
		name = flag.String("deck", "default", "deck name to seed under")
	)
	flag.Parse()

	// 1) Load the JSON deck
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var deck Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	var inserted, skipped, errs int

	upsert := func(kind, text string) {
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO deck_cards (deck, kind, text)
            VALUES ($1, $2, $3)
            ON CONFLICT (deck, kind, text) DO NOTHING`,
			*name, kind, text,
		)
		if err != nil {
			errs++
			fmt.Fprintf(os.Stderr, "insert %s card %q: %v\n", kind, text, err)
			return
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	for _, text := range deck.Prompts {
		upsert("PROMPT", text)
	}
	for _, text := range deck.Responses {
		upsert("RESPONSE", text)
	}

	total := len(deck.Prompts) + len(deck.Responses)
	fmt.Printf("deck %q: %d cards total, %d inserted, %d already present, %d errors\n",
		*name, total, inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
