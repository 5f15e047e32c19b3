package store

import (
	"context"
	"fmt"
)

var (
	nodeColumns = []string{"id", "type", "originalType", "filePath", "data", "location", "snapshotId", "createdAt", "updatedAt"}
	edgeColumns = []string{"id", "fromId", "toId", "kind", "filePath", "snapshotId", "version", "createdAt"}
)

// SnapshotNodes returns every row of table belonging to snapshotID, ordered
// by id.
func (s *Store) SnapshotNodes(ctx context.Context, table, snapshotID string) ([]NodeRow, error) {
	if !ValidIdent(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	q := "SELECT " + columnList(nodeColumns) + " FROM " + quoteIdent(table) +
		` WHERE "snapshotId" = ? ORDER BY "id"`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var result []NodeRow
	for rows.Next() {
		var (
			r              NodeRow
			id             any
			data, location any
		)
		if err := rows.Scan(&id, &r.Type, &r.OriginalType, &r.FilePath, &data, &location,
			&r.SnapshotID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		r.ID = coerceID(id)
		r.Data = decodeJSONColumn(data)
		r.Location = decodeJSONColumn(location)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return result, nil
}

// SnapshotEdges returns every row of table belonging to snapshotID, ordered
// by (fromId, toId, kind).
func (s *Store) SnapshotEdges(ctx context.Context, table, snapshotID string) ([]EdgeRow, error) {
	if !ValidIdent(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	q := "SELECT " + columnList(edgeColumns) + " FROM " + quoteIdent(table) +
		` WHERE "snapshotId" = ? ORDER BY "fromId","toId","kind"`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var result []EdgeRow
	for rows.Next() {
		var (
			r            EdgeRow
			id, from, to any
		)
		if err := rows.Scan(&id, &from, &to, &r.Kind, &r.FilePath, &r.SnapshotID,
			&r.Version, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		r.ID, r.FromID, r.ToID = coerceID(id), coerceID(from), coerceID(to)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return result, nil
}
