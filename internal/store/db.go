// Package store is the Session Store of spec.md §4.2: a durable,
// transactional repository for Session, Response, Result, and
// RecommendedItem rows, plus the read-mostly Item Bank, Content
// Catalog, and AuditLog. It owns all SQL; every caller gets back plain
// models records, never a driver-level row.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

// DB wraps *sql.DB the way the teacher's (missing-from-the-retrieved-
// slice but evidently present) internal/database.DB does: a thin
// embedding that opens via lib/pq and exposes the *sql.DB methods
// services call directly (Query/QueryRow/Exec/Begin), plus
// instrumentation the teacher's services never had reason to add.
type DB struct {
	*sql.DB
}

var queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "assessment_store_query_duration_seconds",
	Help:    "Duration of store-layer SQL statements by operation.",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

func init() {
	prometheus.MustRegister(queryDuration)
}

// Open connects to Postgres via lib/pq and verifies connectivity.
func Open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

// observe is a small helper the repository methods use to time a named
// operation without repeating the histogram dance at every call site.
func observe(operation string) func() {
	start := time.Now()
	return func() {
		queryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
