package config

import (
	"time"

	"github.com/spf13/pflag"
)

// AuditConfig holds configuration for the audit command.
type AuditConfig struct {
	RPCURL       string
	Pool         string
	Asset        string
	Staking      string
	Rewards      string
	FromBlock    uint64
	ToBlock      uint64
	Step         uint64
	Out          string
	StateFile    string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadAudit merges config file, environment variables, and flags into AuditConfig.
func LoadAudit(cfgFile string, flags *pflag.FlagSet) (AuditConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":           "./data/holdings.jsonl",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return AuditConfig{}, err
	}

	cfg := AuditConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		Asset:        v.GetString("asset"),
		Staking:      v.GetString("staking"),
		Rewards:      v.GetString("rewards"),
		FromBlock:    v.GetUint64("from"),
		ToBlock:      v.GetUint64("to"),
		Step:         v.GetUint64("step"),
		Out:          v.GetString("out"),
		StateFile:    v.GetString("state-file"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
