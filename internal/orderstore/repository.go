package orderstore

import (
	"context"
	"errors"
	"time"

	"github.com/adashop/storefront/internal/order"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// Credentials holds the postgres connection settings.
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending row of the transactional outbox. Events are
// written in the same transaction as the state change they describe and
// published to the broker by the poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// OrderRepository is the persistence surface of the order store. It extends
// the order API with the outbox operations the publisher needs.
type OrderRepository interface {
	order.API
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
	RunMigrations(cred *Credentials) error
	Close() error
}
