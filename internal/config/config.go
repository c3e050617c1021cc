package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Match       MatchConfig       `toml:"match"`
	Lockstep    LockstepConfig    `toml:"lockstep"`
	Combat      CombatConfig      `toml:"combat"`
	Economy     EconomyConfig     `toml:"economy"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Logging     LoggingConfig     `toml:"logging"`
}

type MatchConfig struct {
	TickRate   time.Duration `toml:"tick_rate"`
	MaxTicks   uint64        `toml:"max_ticks"` // 0 = unbounded
	Seed       int64         `toml:"seed"`      // drives local bot peers only, never core state
	DataDir    string        `toml:"data_dir"`
	ScriptsDir string        `toml:"scripts_dir"` // "" = built-in threat policy
}

type LockstepConfig struct {
	Policy  string        `toml:"policy"` // "stall" or "drop"
	Timeout time.Duration `toml:"timeout"`
	Peers   int           `toml:"peers"`
}

type CombatConfig struct {
	MoraleDurationTicks  uint64 `toml:"morale_duration_ticks"`
	MoraleAttackPermille int32  `toml:"morale_attack_permille"`
	MoraleSpeedPermille  int32  `toml:"morale_speed_permille"`
}

type EconomyConfig struct {
	UpkeepEveryTicks  uint64 `toml:"upkeep_every_ticks"`
	UpkeepSupplyDiv   int64  `toml:"upkeep_supply_div"` // food consumed = supplyUsed / div
	BaseSupply        int32  `toml:"base_supply"`
	ArcanaTierMinimum int32  `toml:"arcana_tier_minimum"` // relics yield only at this tech tier+
}

type DiagnosticsConfig struct {
	DSN             string        `toml:"dsn"` // "" = archive disabled
	FlushEveryTicks uint64        `toml:"flush_every_ticks"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Match.TickRate <= 0 {
		return fmt.Errorf("match.tick_rate must be positive")
	}
	if c.Lockstep.Policy != "stall" && c.Lockstep.Policy != "drop" {
		return fmt.Errorf("lockstep.policy must be \"stall\" or \"drop\", got %q", c.Lockstep.Policy)
	}
	if c.Lockstep.Peers < 1 {
		return fmt.Errorf("lockstep.peers must be at least 1")
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Match: MatchConfig{
			TickRate:   200 * time.Millisecond,
			MaxTicks:   0,
			Seed:       1,
			DataDir:    "data/yaml",
			ScriptsDir: "scripts",
		},
		Lockstep: LockstepConfig{
			Policy:  "stall",
			Timeout: 600 * time.Millisecond,
			Peers:   1,
		},
		Combat: CombatConfig{
			MoraleDurationTicks:  25,
			MoraleAttackPermille: 1350,
			MoraleSpeedPermille:  1250,
		},
		Economy: EconomyConfig{
			UpkeepEveryTicks:  25,
			UpkeepSupplyDiv:   5,
			BaseSupply:        12,
			ArcanaTierMinimum: 3,
		},
		Diagnostics: DiagnosticsConfig{
			DSN:             "",
			FlushEveryTicks: 50,
			MaxOpenConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
