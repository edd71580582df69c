// Package db persists parent documents and their chunks and enforces
// content-hash deduplication at the storage layer.
package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Document is the relational record of an ingested file. The unique
// constraint on content_hash is what makes concurrent duplicate ingestion
// safe; see Store.Insert.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string            `bun:"id,pk"`
	ContentHash   string            `bun:"content_hash,notnull,unique"`
	Title         string            `bun:"title,notnull"`
	FullContent   string            `bun:"full_content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time         `bun:"created_at,notnull,default:current_timestamp"`
}

// Chunk is the relational record of one retrieval unit. The embedding lives
// in the vector index, not here.
type Chunk struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string            `bun:"id,pk"`
	ParentID      string            `bun:"parent_id,notnull"`
	ContentHash   string            `bun:"content_hash,notnull"`
	Text          string            `bun:"text,notnull"`
	Position      int               `bun:"position,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
}

// NewDB wraps an open connection with the bun query builder.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a Postgres connection via the bun pg driver.
func ConnectDB(dsn, password string) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password))), nil
}

// InitDB creates the documents and chunks tables with their indexes.
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateTable().Model((*Chunk)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().
		Model((*Chunk)(nil)).
		Index("chunks_parent_id_idx").
		IfNotExists().
		Column("parent_id").
		Exec(ctx)
	return err
}
