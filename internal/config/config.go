package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrNoEndpoints        = errors.New("no rpc urls provided")
	ErrNotEnoughEndpoints = errors.New("need at least 2 rpc urls to race")
)

// Config drives one benchmark run. Timeouts are stored as milliseconds
// in the file so the JSON stays plain numbers.
type Config struct {
	RPCURLs      []string `json:"rpc_urls"`
	KeypairPath1 string   `json:"keypair_path_1"`
	KeypairPath2 string   `json:"keypair_path_2"`

	PrepareTimeoutMS int64 `json:"prepare_timeout_ms"`
	RaceTimeoutMS    int64 `json:"race_timeout_ms"`
	PollIntervalMS   int64 `json:"poll_interval_ms"`
}

const (
	defaultPrepareTimeout = 10 * time.Second
	defaultRaceTimeout    = 30 * time.Second
	defaultPollInterval   = 1 * time.Second
)

func (c Config) PrepareTimeout() time.Duration { return msOr(c.PrepareTimeoutMS, defaultPrepareTimeout) }
func (c Config) RaceTimeout() time.Duration    { return msOr(c.RaceTimeoutMS, defaultRaceTimeout) }
func (c Config) PollInterval() time.Duration   { return msOr(c.PollIntervalMS, defaultPollInterval) }

func msOr(ms int64, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// Load reads the JSON config, applies .env / environment overrides and
// validates. RPC_RACE_URLS (comma separated), RPC_RACE_KEYPAIR_1 and
// RPC_RACE_KEYPAIR_2 take precedence over the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	expanded := ExpandTilde(path)
	raw, err := os.ReadFile(expanded)
	if err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", expanded, err)
	}

	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", expanded, err)
	}

	if urls := os.Getenv("RPC_RACE_URLS"); urls != "" {
		c.RPCURLs = SplitCSV(urls)
	}
	if kp := os.Getenv("RPC_RACE_KEYPAIR_1"); kp != "" {
		c.KeypairPath1 = kp
	}
	if kp := os.Getenv("RPC_RACE_KEYPAIR_2"); kp != "" {
		c.KeypairPath2 = kp
	}

	c.KeypairPath1 = ExpandTilde(c.KeypairPath1)
	c.KeypairPath2 = ExpandTilde(c.KeypairPath2)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if len(c.RPCURLs) == 0 {
		return ErrNoEndpoints
	}
	if len(c.RPCURLs) < 2 {
		return ErrNotEnoughEndpoints
	}
	return nil
}

func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, x := range parts {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
