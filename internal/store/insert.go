package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertNodes writes rows into table in a single transaction. Data and
// Location are stored as canonical JSON text; string values are stored as
// they are.
func (s *Store) InsertNodes(ctx context.Context, table string, rows []NodeRow) error {
	if !ValidIdent(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	q := s.rebind("INSERT INTO " + quoteIdent(table) + " (" + columnList(nodeColumns) +
		") VALUES (" + placeholderList(len(nodeColumns)) + ")")
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare node insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			data, err := encodeJSONColumn(r.Data)
			if err != nil {
				return fmt.Errorf("encode data of node %q: %w", r.ID, err)
			}
			location, err := encodeJSONColumn(r.Location)
			if err != nil {
				return fmt.Errorf("encode location of node %q: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, r.ID, r.Type, r.OriginalType, r.FilePath,
				data, location, r.SnapshotID, r.CreatedAt, r.UpdatedAt); err != nil {
				return fmt.Errorf("insert node %q: %w", r.ID, err)
			}
		}
		return nil
	})
}

// InsertEdges writes rows into table in a single transaction.
func (s *Store) InsertEdges(ctx context.Context, table string, rows []EdgeRow) error {
	if !ValidIdent(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	q := s.rebind("INSERT INTO " + quoteIdent(table) + " (" + columnList(edgeColumns) +
		") VALUES (" + placeholderList(len(edgeColumns)) + ")")
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ID, r.FromID, r.ToID, r.Kind, r.FilePath,
				r.SnapshotID, r.Version, r.CreatedAt); err != nil {
				return fmt.Errorf("insert edge %q: %w", r.ID, err)
			}
		}
		return nil
	})
}

// DeleteSnapshot removes every node and edge row of snapshotID.
func (s *Store) DeleteSnapshot(ctx context.Context, t Tables, snapshotID string) error {
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{t.Edges, t.Nodes} {
			q := s.rebind("DELETE FROM " + quoteIdent(table) + ` WHERE "snapshotId" = ?`)
			if _, err := tx.ExecContext(ctx, q, snapshotID); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
