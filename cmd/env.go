package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/haulview/freightmatch/internal/matching"
	"github.com/haulview/freightmatch/internal/oracle"
	"github.com/haulview/freightmatch/internal/store"
	"github.com/haulview/freightmatch/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "freightmatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initOracle() (oracle.Oracle, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (FREIGHT_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return oracle.NewLLM(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Anthropic.RPS), nil
}

func matchingConfig() matching.Config {
	return matching.Config{
		POThreshold:   cfg.Matching.POFuzzyThreshold,
		BOLThreshold:  cfg.Matching.BOLFuzzyThreshold,
		MaxCandidates: cfg.Matching.MaxCandidates,
		FuzzyFallback: cfg.Matching.FuzzyFallback,
	}
}

func initEngine(st store.Store) (*matching.Engine, error) {
	o, err := initOracle()
	if err != nil {
		return nil, err
	}
	return matching.NewEngine(st, o, matchingConfig()), nil
}
