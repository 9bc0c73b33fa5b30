package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eigerco/tollbridge/internal/affirming"
	"github.com/eigerco/tollbridge/internal/collecting"
	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/ledger"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/metrics"
	"github.com/eigerco/tollbridge/internal/remediating"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/internal/toll"
	"github.com/eigerco/tollbridge/internal/validator"
	"github.com/eigerco/tollbridge/pkg/log"
)

// Config is the bridge configuration. Limits seed the store on first start;
// after that the persisted limits win so administrative changes survive
// restarts.
type Config struct {
	Admin            crypto.Address
	Toll             state.TollConfig
	Limits           map[state.Direction]state.Limits
	RecheckForwarded bool
}

type Option func(*Bridge)

// WithObserver registers an observer called with the events of every
// committed operation, outside the bridge lock.
func WithObserver(o events.Observer) Option {
	return func(b *Bridge) {
		b.observers = append(b.observers, o)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// Bridge serializes every settlement operation through one lock. Each
// operation runs in a single store transaction; ledger credits run after
// the transaction committed.
type Bridge struct {
	mu         sync.RWMutex
	store      *store.Store
	validators validator.Set
	ledger     ledger.Ledger
	admin      crypto.Address

	limiter    *limits.Limiter
	toll       *toll.Toll
	engine     *affirming.Engine
	collector  *collecting.Collector
	remediator *remediating.Remediator

	observers []events.Observer
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func New(s *store.Store, validators validator.Set, l ledger.Ledger, cfg Config, opts ...Option) (*Bridge, error) {
	limiter := limits.New(&cfg.Toll.Fee)
	t := toll.New(cfg.Toll)
	b := &Bridge{
		store:      s,
		validators: validators,
		ledger:     l,
		admin:      cfg.Admin,
		limiter:    limiter,
		toll:       t,
		engine:     affirming.New(limiter, t),
		collector:  collecting.New(),
		remediator: remediating.New(limiter, cfg.RecheckForwarded),
		log:        log.Bridge,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.bootstrap(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bridge) bootstrap(cfg Config) error {
	txn := b.store.Begin()
	for _, dir := range state.Directions {
		stored, err := txn.HasLimits(dir)
		if err != nil {
			txn.Discard()
			return err
		}
		if stored {
			l, err := txn.Limits(dir)
			if err != nil {
				txn.Discard()
				return err
			}
			if err := l.Validate(&cfg.Toll.Fee); err != nil {
				txn.Discard()
				return fmt.Errorf("stored %s limits: %w", dir, err)
			}
			continue
		}
		initial, ok := cfg.Limits[dir]
		if !ok {
			txn.Discard()
			return fmt.Errorf("%w: no %s limits configured", common.ErrConfigurationInvalid, dir)
		}
		if err := b.limiter.Init(txn, dir, initial); err != nil {
			txn.Discard()
			return err
		}
	}
	if err := txn.PutTollConfig(cfg.Toll); err != nil {
		txn.Discard()
		return err
	}
	if err := b.store.Commit(txn); err != nil {
		return fmt.Errorf("bootstrap bridge state: %w", err)
	}
	b.refreshGauges()
	return nil
}

// settlement is the work an operation leaves for after the commit.
// compensate undoes ledger effects of the stage when the commit fails.
type settlement struct {
	payouts    []toll.Payout
	compensate func(context.Context) error
}

// execute runs stage in a fresh transaction under the write lock, commits it,
// then pays out. Observers are notified after the lock is released.
func (b *Bridge) execute(ctx context.Context, operation string, stage func(*store.Txn) (settlement, error)) (emitted []events.Event, err error) {
	start := time.Now()
	defer func() {
		b.metrics.ObserveOperation(operation, start, err)
	}()

	c, err := b.commit(ctx, stage)
	if err != nil {
		if errors.Is(err, common.ErrSettlementFailed) {
			b.metrics.SettlementFailed()
			b.log.Error().Err(err).Str("operation", operation).Msg("ledger left inconsistent with bridge state")
		}
		return nil, err
	}

	b.metrics.EventsAppended(len(c.emitted))
	for _, ev := range c.emitted {
		for _, observe := range b.observers {
			observe(ev)
		}
	}
	if c.settleErr != nil {
		b.metrics.SettlementFailed()
		b.log.Error().Err(c.settleErr).Str("operation", operation).Msg("ledger credit failed after commit")
		return c.emitted, fmt.Errorf("%w: %w", common.ErrSettlementFailed, c.settleErr)
	}
	return c.emitted, nil
}

type committed struct {
	emitted   []events.Event
	settleErr error
}

func (b *Bridge) commit(ctx context.Context, stage func(*store.Txn) (settlement, error)) (committed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	txn := b.store.Begin()
	s, err := stage(txn)
	if err != nil {
		txn.Discard()
		return committed{}, err
	}
	emitted := txn.Emitted()
	if err := b.store.Commit(txn); err != nil {
		txn.Discard()
		if s.compensate != nil {
			if cerr := s.compensate(context.WithoutCancel(ctx)); cerr != nil {
				return committed{}, errors.Join(err, cerr)
			}
		}
		return committed{}, err
	}

	// committed bookkeeping stands whatever the ledger does
	settleErr := toll.Pay(context.WithoutCancel(ctx), b.ledger, s.payouts)
	b.refreshGauges()
	return committed{emitted: emitted, settleErr: settleErr}, nil
}

// refreshGauges must be called with the lock held.
func (b *Bridge) refreshGauges() {
	if b.metrics == nil {
		return
	}
	txn := b.store.Begin()
	defer txn.Discard()
	if v, err := txn.OutOfLimit(); err == nil {
		b.metrics.SetOutOfLimit(v)
	}
	for _, dir := range state.Directions {
		if l, err := txn.Limits(dir); err == nil {
			b.metrics.SetSpent(dir.String(), &l.Spent)
		}
	}
}

func (b *Bridge) view(fn func(*store.Txn) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	txn := b.store.Begin()
	defer txn.Discard()
	return fn(txn)
}

func (b *Bridge) requireAdmin(caller crypto.Address) error {
	if caller != b.admin {
		return fmt.Errorf("%w: %s is not the administrator", common.ErrUnauthorized, caller)
	}
	return nil
}
