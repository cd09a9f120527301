package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"call-review-go/internal/config"
	"call-review-go/internal/logger"
	"call-review-go/internal/types"
)

// Store persists evaluated call records and searches them by participant or
// file name. Records are append-only.
type Store interface {
	// Save assigns an ID and creation time when missing and inserts the record.
	Save(ctx context.Context, rec *types.CallRecord) error
	// Search returns records whose field contains query, ignoring case, in
	// insertion order. It never returns a nil slice.
	Search(ctx context.Context, field types.SearchField, query string) ([]types.CallRecord, error)
	Close(ctx context.Context) error
}

type pinger interface {
	ping(ctx context.Context) error
}

type migrator interface {
	migrate(ctx context.Context) error
}

// Open builds the configured store. Network stores are pinged with backoff
// until they answer or cfg.ConnectTimeout elapses.
func Open(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (Store, error) {
	log = log.Component("store")

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "memory":
		log.Info("using in-memory store, records are lost on exit")
		return NewMemoryStore(), nil
	case "mongo":
		s, err = NewMongoStore(ctx, cfg)
	case "postgres":
		s, err = NewPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := connectWithRetry(ctx, s.(pinger), cfg.ConnectTimeout, log); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	if m, ok := s.(migrator); ok {
		if err := m.migrate(ctx); err != nil {
			_ = s.Close(context.Background())
			return nil, err
		}
	}
	log.WithField("driver", cfg.Driver).Info("store connected")
	return s, nil
}

func connectWithRetry(ctx context.Context, p pinger, limit time.Duration, log *logger.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = limit

	attempt := 0
	op := func() error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.ping(pctx); err != nil {
			log.WithField("attempt", attempt).WithField("error", err.Error()).Warn("store not reachable yet")
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("store unreachable after %d attempts: %w", attempt, err)
	}
	return nil
}

// prepare fills the fields Save is responsible for.
func prepare(rec *types.CallRecord, newID func() string) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
