package graphsnap

import (
	"database/sql"

	"github.com/jward/graphsnap/internal/canonical"
)

// nodeFromRow maps a node row to a Node. The row's file path, JSON columns,
// snapshot id and timestamps become the node's canonical properties.
func nodeFromRow(r NodeRow) Node {
	return Node{
		ID:    r.ID,
		Kind:  r.Type.String,
		Label: r.OriginalType.String,
		Properties: canonical.NewMap(map[string]any{
			"filePath":   nullString(r.FilePath),
			"data":       r.Data,
			"location":   r.Location,
			"snapshotId": nullString(r.SnapshotID),
			"createdAt":  nullTime(r.CreatedAt),
			"updatedAt":  nullTime(r.UpdatedAt),
		}),
	}
}

// edgeFromRow maps an edge row to an Edge.
func edgeFromRow(r EdgeRow) Edge {
	var version any
	if r.Version.Valid {
		version = r.Version.Int64
	}
	return Edge{
		Source: r.FromID,
		Target: r.ToID,
		Kind:   r.Kind.String,
		Properties: canonical.NewMap(map[string]any{
			"id":         r.ID,
			"filePath":   nullString(r.FilePath),
			"snapshotId": nullString(r.SnapshotID),
			"version":    version,
			"createdAt":  nullTime(r.CreatedAt),
		}),
	}
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullTime(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return canonical.FormatTime(t.Time)
}
