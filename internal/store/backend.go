package store

import (
	"context"
	"fmt"
)

// Backend is the job history contract shared by the SQL and Mongo stores.
type Backend interface {
	Record(ctx context.Context, c Conversion) error
	UpdateStatus(ctx context.Context, c Conversion) error
	Get(ctx context.Context, id string) (*Conversion, error)
	List(ctx context.Context, limit int) ([]Conversion, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*MongoStore)(nil)
)

// Connect opens the backend named by driver: "mysql", "postgres", "sqlite3"
// or "mongo".
func Connect(ctx context.Context, driver, dsn string) (Backend, error) {
	switch driver {
	case "mongo":
		return OpenMongo(ctx, dsn)
	case "mysql", "postgres", "sqlite3":
		return Open(driver, dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}
