package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/market"
	"github.com/shelfwatch/shelfwatch/internal/metrics"
	"github.com/shelfwatch/shelfwatch/internal/resolver"
	"github.com/shelfwatch/shelfwatch/internal/retry"
)

// Checker collects availability snapshots. Safe for concurrent use: every
// cycle is self-contained and the config is swapped atomically.
type Checker struct {
	client *market.Client
	reg    *metrics.Registry
	cfg    atomic.Pointer[config.Config]
}

// New returns a Checker using client for upstream calls and reg for
// counters.
func New(client *market.Client, cfg *config.Config, reg *metrics.Registry) *Checker {
	c := &Checker{client: client, reg: reg}
	c.cfg.Store(cfg)
	return c
}

// SetConfig installs a new configuration. In-flight cycles keep the config
// they started with.
func (c *Checker) SetConfig(cfg *config.Config) {
	c.cfg.Store(cfg)
}

// Config returns the currently installed configuration.
func (c *Checker) Config() *config.Config {
	return c.cfg.Load()
}

// Endpoint returns the upstream GraphQL endpoint being queried.
func (c *Checker) Endpoint() string {
	return c.client.Endpoint()
}

// Collect runs one full collection cycle and returns the snapshot.
func (c *Checker) Collect(ctx context.Context) (*Snapshot, error) {
	cfg := c.cfg.Load()
	c.reg.CycleStarted()

	start := time.Now()
	snap, err := c.collect(ctx, cfg)
	if err != nil {
		c.reg.CycleFailed()
		slog.Warn("checker: cycle failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}

	slog.Info("checker: cycle complete",
		"product_id", snap.ProductID,
		"stores", len(snap.Stores),
		"elapsed", time.Since(start),
	)
	return snap, nil
}

func (c *Checker) collect(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	productID, err := c.resolveProductID(cfg)
	if err != nil {
		return nil, err
	}

	targets, err := c.resolveTargets(ctx, cfg)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		GeneratedAt:    time.Now().UTC(),
		ProductID:      productID,
		Source:         c.client.Endpoint(),
		ProductPageURL: cfg.Product.PageURL,
		Stores:         make([]StoreStatus, 0, len(targets)),
	}

	retryCfg := cfg.Upstream.Retry
	for _, target := range targets {
		target := target
		product, err := queryWithRetry(ctx, c, retryCfg, func(ctx context.Context) (*market.Product, error) {
			return c.client.ProductAt(ctx, productID, target.StoreID)
		})
		if err != nil {
			return nil, fmt.Errorf("store %q (#%d): %w", target.Label, target.StoreID, err)
		}

		if snap.Title == "" {
			snap.Title = product.Title
		}
		snap.Stores = append(snap.Stores, StoreStatus{
			Label:   target.Label,
			StoreID: target.StoreID,
			Located: product.InAssortment,
			InStock: product.Available,
		})
	}

	if snap.Title == "" {
		snap.Title = FallbackTitle
	}
	return snap, nil
}

// resolveProductID extracts the product id from the configured HTML snapshot
// when one is set, otherwise from the product page URL. Never retried.
func (c *Checker) resolveProductID(cfg *config.Config) (int, error) {
	if path := cfg.Product.HTMLSnapshot; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read html snapshot: %w", err)
		}
		return resolver.FromHTML(string(data))
	}
	return resolver.FromURL(cfg.Product.PageURL)
}

// resolveTargets fills in the store id of any label-only target via the
// store directory. The directory is fetched at most once per cycle.
func (c *Checker) resolveTargets(ctx context.Context, cfg *config.Config) ([]config.StoreTarget, error) {
	targets := make([]config.StoreTarget, len(cfg.Stores))
	copy(targets, cfg.Stores)

	var directory []market.Store
	for i, target := range targets {
		if target.StoreID != 0 {
			continue
		}
		if directory == nil {
			var err error
			directory, err = queryWithRetry(ctx, c, cfg.Upstream.Retry, c.client.Stores)
			if err != nil {
				return nil, fmt.Errorf("store directory: %w", err)
			}
		}
		id, err := matchStore(target.Label, directory)
		if err != nil {
			return nil, err
		}
		targets[i].StoreID = id
	}
	return targets, nil
}

// matchStore finds the first directory entry whose name contains label,
// case-insensitive.
func matchStore(label string, directory []market.Store) (int, error) {
	needle := strings.ToLower(label)
	for _, s := range directory {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			return s.ID()
		}
	}
	return 0, fmt.Errorf("no store directory match for %q", label)
}

// queryWithRetry runs one upstream operation through the retry wrapper,
// counting every attempt in the registry.
func queryWithRetry[T any](ctx context.Context, c *Checker, rc config.RetryConfig, op func(context.Context) (T, error)) (T, error) {
	return retry.DoValue(ctx, rc.Attempts, rc.BaseDelay, func(ctx context.Context) (T, error) {
		c.reg.RequestMade()
		v, err := op(ctx)
		if err != nil {
			c.reg.RequestFailed()
		}
		return v, err
	})
}
