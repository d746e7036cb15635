// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package host

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/multiversx/mx-delegation-sc-sub000/common"
	"github.com/multiversx/mx-delegation-sc-sub000/config"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/operation"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/reverts"
	"github.com/multiversx/mx-delegation-sc-sub000/delegation/transform"
	"github.com/multiversx/mx-delegation-sc-sub000/gascharger"
	"github.com/multiversx/mx-delegation-sc-sub000/log"
	"github.com/multiversx/mx-delegation-sc-sub000/logdb"
	"github.com/multiversx/mx-delegation-sc-sub000/lvldb"
	"github.com/multiversx/mx-delegation-sc-sub000/metrics"
	"github.com/multiversx/mx-delegation-sc-sub000/state"
)

var logger = log.WithContext("pkg", "host")

// ErrGasExceeded is returned when an invocation used more than the gas limit.
var ErrGasExceeded = errors.New("gas limit exceeded")

// SystemClock stamps buckets with the wall clock in unix seconds.
var SystemClock = transform.ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })

// Receipt describes a committed invocation.
type Receipt struct {
	Seq    uint64
	Gas    uint64
	Events []*delegation.Event
}

// Host runs ledger calls as all-or-nothing invocations over a persisted
// store. Invocations are serialized.
type Host struct {
	cfg      *config.Config
	clock    transform.Clock
	db       *lvldb.LevelDB
	stater   *state.Stater
	logDB    *logdb.LogDB
	recorder logdb.Recorder

	mu  sync.Mutex
	seq uint64
}

// InitLogger installs the root logger configured by cfg.
func InitLogger(cfg config.Log) {
	verbosity := 3
	if cfg.Verbosity != nil {
		verbosity = *cfg.Verbosity
	}
	handler := log.NewHandler(os.Stderr, cfg.JSON, log.VerbosityLevel(verbosity))
	log.SetDefault(log.NewLogger(handler))
}

func openMainDB(cfg config.Storage) (*lvldb.LevelDB, error) {
	if cfg.InMemory {
		return lvldb.NewMem()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create data dir [%v]", cfg.DataDir)
	}
	dir := filepath.Join(cfg.DataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cfg.CacheSize,
		OpenFilesCacheCapacity: cfg.OpenFilesCacheCapacity,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger database [%v]", dir)
	}
	return db, nil
}

func openLogDB(cfg *config.Config) (*logdb.LogDB, error) {
	if cfg.Storage.InMemory {
		return logdb.NewMem()
	}
	dir := filepath.Dir(cfg.EventDB.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create event db dir [%v]", dir)
	}
	db, err := logdb.New(cfg.EventDB.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database [%v]", cfg.EventDB.Path)
	}
	return db, nil
}

// Open validates cfg and opens the stores it names. A nil clock means
// SystemClock.
func Open(cfg *config.Config, clock transform.Clock) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	if cfg.Metrics.Enabled {
		metrics.InitializePrometheusMetrics()
	}

	db, err := openMainDB(cfg.Storage)
	if err != nil {
		return nil, err
	}
	stater, err := state.NewStater(db, cfg.Storage.StateCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	h := &Host{
		cfg:      cfg,
		clock:    clock,
		db:       db,
		stater:   stater,
		recorder: logdb.NewNoopRecorder(),
	}
	if !cfg.EventDB.Disabled {
		logDB, err := openLogDB(cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
		seq, err := logDB.NewestSeq()
		if err != nil {
			logDB.Close()
			db.Close()
			return nil, err
		}
		h.logDB, h.recorder, h.seq = logDB, logdb.NewRecorder(logDB), seq
		logger.Debug("event db opened", "driver", logDB.DriverVersion(), "seq", seq)
	}
	return h, nil
}

// Close closes the stores.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.recorder.Close()
	if dbErr := h.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// MetricsHandler serves the metrics, nil unless metrics are enabled.
func (h *Host) MetricsHandler() http.Handler {
	return metrics.HTTPHandler()
}

func invocationStatus(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrGasExceeded):
		return "out_of_gas"
	case reverts.IsConflictErr(err):
		return "conflict"
	case reverts.IsInvariantErr(err):
		return "invariant"
	case reverts.IsRevertErr(err):
		return "reverted"
	default:
		return "error"
	}
}

// Invoke runs fn against a fresh ledger view within the gas budget. Its
// changes and events are committed only when fn succeeds within the
// budget.
func (h *Host) Invoke(call string, fn func(d *delegation.Delegation) error) (receipt *Receipt, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	charger := gascharger.New(h.cfg.Gas.Limit, h.cfg.Gas.Reserve)
	defer func() {
		status := invocationStatus(err)
		metricInvocations().AddWithLabel(1, map[string]string{"call": call, "status": status})
		metricGasUsed().ObserveWithLabels(int64(charger.TotalGas()), map[string]string{"call": call})
		metricDuration().Observe(time.Since(start).Microseconds())
		switch status {
		case "committed":
			logger.Debug("invocation committed", "call", call, "gas", charger.TotalGas())
		case "invariant", "error":
			logger.Error("invocation failed", "call", call, "err", err)
		default:
			logger.Debug("invocation reverted", "call", call, "status", status, "err", err)
		}
	}()

	st := h.stater.NewState()
	checkpoint := st.NewCheckpoint()
	d := delegation.New(st, charger, h.clock)

	if err := fn(d); err != nil {
		st.RevertTo(checkpoint)
		return nil, err
	}
	if charger.Exceeded() {
		st.RevertTo(checkpoint)
		return nil, errors.Wrapf(ErrGasExceeded, "%s used %d, %s", call, charger.TotalGas(), charger.Breakdown())
	}

	inProgress, err := d.OperationInProgress()
	if err != nil {
		return nil, err
	}
	if err := st.Stage().Commit(); err != nil {
		return nil, err
	}
	h.stater.CacheStats()
	if inProgress {
		metricOperation().Set(1)
	} else {
		metricOperation().Set(0)
	}

	h.seq++
	receipt = &Receipt{Seq: h.seq, Gas: charger.TotalGas(), Events: d.Events()}
	if err := h.record(receipt); err != nil {
		// the ledger change stands, only the journal lags behind
		logger.Warn("failed to record events", "seq", receipt.Seq, "err", err)
	}
	return receipt, nil
}

func (h *Host) record(receipt *Receipt) error {
	if len(receipt.Events) == 0 {
		return nil
	}
	now := h.clock.Now()
	events := make([]*logdb.Event, 0, len(receipt.Events))
	for i, ev := range receipt.Events {
		events = append(events, &logdb.Event{
			Seq:    receipt.Seq,
			Index:  uint32(i),
			Time:   now,
			Kind:   ev.Kind,
			Owner:  ev.Owner,
			Amount: ev.Amount,
			Detail: ev.Detail,
		})
		metricEvents().AddWithLabel(1, map[string]string{"kind": ev.Kind})
	}
	return h.recorder.Record(events)
}

// View runs fn against the committed state. Changes made by fn are
// dropped.
func (h *Host) View(fn func(d *delegation.Delegation) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return fn(delegation.New(h.stater.NewState(), nil, h.clock))
}

// FilterEvents queries the event journal.
func (h *Host) FilterEvents(ctx context.Context, filter *logdb.EventFilter) ([]*logdb.Event, error) {
	if h.logDB == nil {
		return nil, errors.New("event db disabled")
	}
	return h.logDB.FilterEvents(ctx, filter)
}

// Init initializes the ledger with the configured parameters unless it
// already is.
func (h *Host) Init() error {
	var done bool
	if err := h.View(func(d *delegation.Delegation) (err error) {
		done, err = d.Initialized()
		return
	}); err != nil {
		return err
	}
	if done {
		return nil
	}
	params, err := h.cfg.Ledger.Params()
	if err != nil {
		return err
	}
	_, err = h.Invoke("init", func(d *delegation.Delegation) error {
		return d.Init(params)
	})
	return err
}

func (h *Host) Deposit(owner common.Address, amount *big.Int) (*Receipt, error) {
	return h.Invoke("deposit", func(d *delegation.Delegation) error {
		return d.Deposit(owner, amount)
	})
}

func (h *Host) ActivateWaiting(limit *big.Int) (*big.Int, *Receipt, error) {
	var activated *big.Int
	receipt, err := h.Invoke("activate", func(d *delegation.Delegation) (err error) {
		activated, err = d.ActivateWaiting(limit)
		return
	})
	return activated, receipt, err
}

func (h *Host) RequestUnstake(owner common.Address, amount *big.Int) (*Receipt, error) {
	return h.Invoke("unstake", func(d *delegation.Delegation) error {
		return d.RequestUnstake(owner, amount)
	})
}

func (h *Host) Withdraw(owner common.Address, amount *big.Int) (*big.Int, *Receipt, error) {
	var paid *big.Int
	receipt, err := h.Invoke("withdraw", func(d *delegation.Delegation) (err error) {
		paid, err = d.Withdraw(owner, amount)
		return
	})
	return paid, receipt, err
}

func (h *Host) WithdrawAll(owner common.Address) (*big.Int, *Receipt, error) {
	var paid *big.Int
	receipt, err := h.Invoke("withdraw_all", func(d *delegation.Delegation) (err error) {
		paid, err = d.WithdrawAll(owner)
		return
	})
	return paid, receipt, err
}

func (h *Host) ClaimRewards(owner common.Address) (*big.Int, *Receipt, error) {
	var paid *big.Int
	receipt, err := h.Invoke("claim", func(d *delegation.Delegation) (err error) {
		paid, err = d.ClaimRewards(owner)
		return
	})
	return paid, receipt, err
}

func (h *Host) DistributeRewards(amount *big.Int) (*Receipt, error) {
	return h.Invoke("distribute", func(d *delegation.Delegation) error {
		return d.DistributeRewards(amount)
	})
}

func (h *Host) RequestModifyCapacity(capacity *big.Int) (operation.Status, *Receipt, error) {
	var status operation.Status
	receipt, err := h.Invoke("modify_capacity", func(d *delegation.Delegation) (err error) {
		status, err = d.RequestModifyCapacity(capacity)
		return
	})
	return status, receipt, err
}

func (h *Host) RequestFeeChange(fee uint64) (operation.Status, *Receipt, error) {
	var status operation.Status
	receipt, err := h.Invoke("change_fee", func(d *delegation.Delegation) (err error) {
		status, err = d.RequestFeeChange(fee)
		return
	})
	return status, receipt, err
}

func (h *Host) ContinueProgress() (operation.Status, *Receipt, error) {
	var status operation.Status
	receipt, err := h.Invoke("continue", func(d *delegation.Delegation) (err error) {
		status, err = d.ContinueProgress()
		return
	})
	return status, receipt, err
}
