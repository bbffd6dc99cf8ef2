// Package config loads service configuration: built-in defaults, then an
// optional CUE file checked against the embedded #Config schema, then
// environment variables.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/policy"
	"github.com/matthewbaird/propmanage/internal/store"
)

//go:embed schema.cue
var schemaSource string

// Config is the resolved service configuration.
type Config struct {
	Port             int      `json:"port"`
	DatabaseURL      string   `json:"database_url"`
	LogLevel         string   `json:"log_level"`
	CORSOrigins      []string `json:"cors_origins"`
	WaterUnitPrice   float64  `json:"water_unit_price"`
	ElecUnitPrice    float64  `json:"elec_unit_price"`
	BillDueDay       int      `json:"bill_due_day"`
	MaxDepositMonths float64  `json:"max_deposit_months"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:           8000,
		DatabaseURL:    store.DefaultDSN,
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
		WaterUnitPrice: 5.0,
		ElecUnitPrice:  1.0,
		BillDueDay:     billing.DefaultDueDay,
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := decodeCUE(data, path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the #Config schema.
func (c Config) Validate() error {
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = unifySchema(data, "config")
	return err
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// Rates returns the utility unit prices.
func (c Config) Rates() billing.Rates {
	return billing.Rates{
		WaterUnitPrice: decimal.NewFromFloat(c.WaterUnitPrice),
		ElecUnitPrice:  decimal.NewFromFloat(c.ElecUnitPrice),
	}
}

// Schedule returns the bill schedule options.
func (c Config) Schedule() billing.ScheduleOptions {
	return billing.ScheduleOptions{DueDay: c.BillDueDay}
}

// DepositLimit returns the deposit cap; zero months leaves it off.
func (c Config) DepositLimit() policy.DepositLimit {
	return policy.DepositLimit{MaxMonths: decimal.NewFromFloat(c.MaxDepositMonths)}
}

// decodeCUE validates src against #Config and overlays the fields it sets
// onto cfg.
func decodeCUE(src []byte, filename string, cfg *Config) error {
	v, err := unifySchema(src, filename)
	if err != nil {
		return err
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", filename, err)
	}
	return nil
}

func unifySchema(src []byte, filename string) (cue.Value, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling config schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if v.Err() != nil {
		return cue.Value{}, fmt.Errorf("parsing %s: %w", filename, v.Err())
	}
	u := def.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, fmt.Errorf("invalid %s: %w", filename, err)
	}
	return u, nil
}

// applyEnv overrides cfg from environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = n
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = []string{}
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"WATER_UNIT_PRICE", &cfg.WaterUnitPrice},
		{"ELEC_UNIT_PRICE", &cfg.ElecUnitPrice},
		{"MAX_DEPOSIT_MONTHS", &cfg.MaxDepositMonths},
	}
	for _, f := range floats {
		v, ok := lookup(f.name)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = n
	}
	if v, ok := lookup("BILL_DUE_DAY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BILL_DUE_DAY: %w", err)
		}
		cfg.BillDueDay = n
	}
	return nil
}
