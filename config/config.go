// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package config

import (
	"math/big"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/settings"
)

// Config holds the configuration of a ledger host.
type Config struct {
	Ledger  Ledger  `yaml:"ledger"`
	Storage Storage `yaml:"storage"`
	Gas     Gas     `yaml:"gas"`
	EventDB EventDB `yaml:"eventdb"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Ledger holds the parameters stored at ledger initialization. Amounts are
// decimal strings.
type Ledger struct {
	Owner              string `yaml:"owner"`
	Capacity           string `yaml:"capacity"`
	ServiceFee         uint64 `yaml:"service_fee"`
	MinDeposit         string `yaml:"min_deposit"`
	OwnerMinShare      uint64 `yaml:"owner_min_share"`
	DeferredPaymentAge uint64 `yaml:"deferred_payment_age"`
}

type Storage struct {
	DataDir                string `yaml:"data_dir"`
	InMemory               bool   `yaml:"in_memory"`
	CacheSize              int    `yaml:"cache_size"`
	OpenFilesCacheCapacity int    `yaml:"open_files_cache_capacity"`
	StateCacheSize         int    `yaml:"state_cache_size"`
}

// Gas bounds the work of one invocation. A global operation yields once
// less than Reserve is left.
type Gas struct {
	Limit   uint64 `yaml:"limit"`
	Reserve uint64 `yaml:"reserve"`
}

type EventDB struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Log verbosity ranges from 0 (crit) to 5 (trace), 3 when unset.
type Log struct {
	Verbosity *int `yaml:"verbosity"`
	JSON      bool `yaml:"json"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DELEGATION_OWNER"); v != "" {
		c.Ledger.Owner = v
	}
	if v := os.Getenv("DELEGATION_CAPACITY"); v != "" {
		c.Ledger.Capacity = v
	}
	if v := os.Getenv("DELEGATION_MIN_DEPOSIT"); v != "" {
		c.Ledger.MinDeposit = v
	}
	if v := os.Getenv("DELEGATION_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("DELEGATION_EVENTDB_PATH"); v != "" {
		c.EventDB.Path = v
	}

	uints := []struct {
		name string
		dst  *uint64
	}{
		{"DELEGATION_SERVICE_FEE", &c.Ledger.ServiceFee},
		{"DELEGATION_OWNER_MIN_SHARE", &c.Ledger.OwnerMinShare},
		{"DELEGATION_DEFERRED_PAYMENT_AGE", &c.Ledger.DeferredPaymentAge},
		{"DELEGATION_GAS_LIMIT", &c.Gas.Limit},
		{"DELEGATION_GAS_RESERVE", &c.Gas.Reserve},
	}
	for _, u := range uints {
		if v := os.Getenv(u.name); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parse %s", u.name)
			}
			*u.dst = n
		}
	}

	if v := os.Getenv("DELEGATION_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "parse DELEGATION_VERBOSITY")
		}
		c.Log.Verbosity = &n
	}
	bools := []struct {
		name string
		dst  *bool
	}{
		{"DELEGATION_IN_MEMORY", &c.Storage.InMemory},
		{"DELEGATION_EVENTDB_DISABLED", &c.EventDB.Disabled},
		{"DELEGATION_LOG_JSON", &c.Log.JSON},
		{"DELEGATION_METRICS", &c.Metrics.Enabled},
	}
	for _, b := range bools {
		if v := os.Getenv(b.name); v != "" {
			on, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s", b.name)
			}
			*b.dst = on
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Ledger.MinDeposit == "" {
		c.Ledger.MinDeposit = "0"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data/ledger"
	}
	if c.Storage.CacheSize == 0 {
		c.Storage.CacheSize = 64
	}
	if c.Storage.OpenFilesCacheCapacity == 0 {
		c.Storage.OpenFilesCacheCapacity = 64
	}
	if c.Storage.StateCacheSize == 0 {
		c.Storage.StateCacheSize = 4096
	}
	if c.Gas.Limit == 0 {
		c.Gas.Limit = 10_000_000
	}
	if c.Gas.Reserve == 0 {
		c.Gas.Reserve = c.Gas.Limit / 10
	}
	if c.EventDB.Path == "" {
		c.EventDB.Path = "data/events.db"
	}
	if c.Log.Verbosity == nil {
		verbosity := 3
		c.Log.Verbosity = &verbosity
	}
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	if _, err := c.Ledger.Params(); err != nil {
		return err
	}
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if c.Gas.Reserve >= c.Gas.Limit {
		return errors.Errorf("gas.reserve %d must be below gas.limit %d", c.Gas.Reserve, c.Gas.Limit)
	}
	if !c.EventDB.Disabled && !c.Storage.InMemory && c.EventDB.Path == "" {
		return errors.New("eventdb.path is required")
	}
	if v := c.Log.Verbosity; v != nil && (*v < 0 || *v > 5) {
		return errors.Errorf("log.verbosity %d out of range 0..5", *v)
	}
	return nil
}

func parseAmount(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("ledger.%s: invalid amount %q", name, s)
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("ledger.%s must not be negative", name)
	}
	return v, nil
}

// Params converts the ledger section into initialization parameters.
func (l *Ledger) Params() (*settings.Params, error) {
	if l.Owner == "" {
		return nil, errors.New("ledger.owner is required")
	}
	owner, err := common.ParseAddress(l.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "ledger.owner")
	}
	if l.Capacity == "" {
		return nil, errors.New("ledger.capacity is required")
	}
	capacity, err := parseAmount("capacity", l.Capacity)
	if err != nil {
		return nil, err
	}
	minDeposit, err := parseAmount("min_deposit", l.MinDeposit)
	if err != nil {
		return nil, err
	}

	p := &settings.Params{
		Owner:              owner,
		Capacity:           capacity,
		ServiceFee:         l.ServiceFee,
		MinDeposit:         minDeposit,
		OwnerMinShare:      l.OwnerMinShare,
		DeferredPaymentAge: l.DeferredPaymentAge,
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "ledger")
	}
	return p, nil
}
