package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"rentbook/internal/config"
	"rentbook/internal/database"
	"rentbook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type ItemsConfig struct {
	Items []models.Item `yaml:"items"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		itemsPath = flag.String("items", "configs/items.yaml", "path to items.yaml")
		dbPath    = flag.String("db", "./data/rentbook.db", "path to sqlite db")
		prune     = flag.Bool("prune", false, "deactivate active items missing from the seed")
	)
	flag.Parse()

	data, err := os.ReadFile(*itemsPath)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	var cfg ItemsConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse items: %w", err)
	}
	if len(cfg.Items) == 0 {
		return errors.New("no items in yaml")
	}
	if err = config.ValidateItems(cfg.Items); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeded := make(map[string]bool, len(cfg.Items))
	for _, it := range cfg.Items {
		seeded[it.ID] = true
	}

	deactivated := 0
	if *prune {
		active, err := db.GetActiveItems(ctx)
		if err != nil {
			return err
		}
		for _, it := range active {
			if seeded[it.ID] {
				continue
			}
			if err := db.DeactivateItem(ctx, it.ID); err != nil {
				return fmt.Errorf("deactivate %s: %w", it.ID, err)
			}
			deactivated++
		}
	}

	if err := db.SyncItems(ctx, cfg.Items); err != nil {
		return err
	}

	for _, it := range db.GetItems() {
		fmt.Printf("%-20s owner=%-12s daily=%d active=%t\n", it.ID, it.OwnerID, it.DailyRate, it.IsActive)
	}
	fmt.Printf("done: synced=%d deactivated=%d\n", len(cfg.Items), deactivated)
	return nil
}
