package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// TicketConfig registers one ticket. An empty Cap is unlimited; credit fields
// are decimal fractions and enable exit fees on the ticket when both are set.
type TicketConfig struct {
	Address     string `mapstructure:"address"`
	Cap         string `mapstructure:"cap"`
	CreditLimit string `mapstructure:"credit-limit"`
	CreditRate  string `mapstructure:"credit-rate"`
}

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Script      string
	Events      string
	Errors      string
	Snapshot    string
	PGDSN       string
	LogLevel    string
	Pool        string
	Asset       string
	Staking     string
	Rewards     string
	Tickets     []TicketConfig
	MaxExitFee  string
	MaxTimelock time.Duration
	Start       time.Time
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
// Tickets come from a "tickets" list in the config file, or else from
// "ticket" entries of the form address[=cap].
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"events":       "./data/events.jsonl",
		"errors":       "./data/errors.jsonl",
		"snapshot":     "./data/snapshot.json",
		"max-exit-fee": "0.5",
		"max-timelock": 10000 * time.Second,
		"log-level":    "info",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	start, err := ParseTimestamp(v.GetString("start"))
	if err != nil {
		return SimulateConfig{}, fmt.Errorf("parse start: %w", err)
	}

	cfg := SimulateConfig{
		Script:      v.GetString("script"),
		Events:      v.GetString("events"),
		Errors:      v.GetString("errors"),
		Snapshot:    v.GetString("snapshot"),
		PGDSN:       v.GetString("pg-dsn"),
		LogLevel:    v.GetString("log-level"),
		Pool:        v.GetString("pool"),
		Asset:       v.GetString("asset"),
		Staking:     v.GetString("staking"),
		Rewards:     v.GetString("rewards"),
		MaxExitFee:  v.GetString("max-exit-fee"),
		MaxTimelock: v.GetDuration("max-timelock"),
		Start:       start,
	}

	if v.IsSet("tickets") {
		if err := v.UnmarshalKey("tickets", &cfg.Tickets); err != nil {
			return SimulateConfig{}, fmt.Errorf("decode tickets: %w", err)
		}
	} else {
		for _, entry := range getStringSlice(v, "ticket") {
			address, capValue, _ := strings.Cut(entry, "=")
			cfg.Tickets = append(cfg.Tickets, TicketConfig{
				Address: strings.TrimSpace(address),
				Cap:     strings.TrimSpace(capValue),
			})
		}
	}

	return cfg, nil
}
