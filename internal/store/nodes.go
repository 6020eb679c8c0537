package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertNode inserts or refreshes a memory node inside tx. The original
// created_at is kept on conflict; updated_at is always bumped.
func (s *Store) UpsertNode(tx *sql.Tx, n MemoryNode) error {
	var parent any
	if n.ParentID != "" {
		parent = n.ParentID
	}

	now := time.Now().Unix()
	_, err := tx.Exec(`INSERT INTO memory_nodes (id, parent_id, project, title, summary, level, path_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			project = excluded.project,
			title = excluded.title,
			summary = excluded.summary,
			level = excluded.level,
			path_key = excluded.path_key,
			updated_at = excluded.updated_at`,
		n.ID, parent, n.Project, n.Title, n.Summary, n.Level, n.PathKey, now, now)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

// LinkNodeSource records that a session contributed to a node.
// Re-linking an existing pair is a no-op.
func (s *Store) LinkNodeSource(tx *sql.Tx, nodeID, sessionID string) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO memory_node_sources (node_id, session_id, created_at)
		VALUES (?, ?, ?)`, nodeID, sessionID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("link node source %s -> %s: %w", nodeID, sessionID, err)
	}
	return nil
}

// Nodes returns all memory nodes, optionally filtered by project.
func (s *Store) Nodes(project string) ([]MemoryNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT id, parent_id, project, title, summary, level, path_key, created_at, updated_at FROM memory_nodes`
	var args []any
	if project != "" {
		q += " WHERE project = ?"
		args = append(args, project)
	}
	q += " ORDER BY level ASC, id ASC"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []MemoryNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// GetNode returns one node by id, or ErrNotFound.
func (s *Store) GetNode(id string) (MemoryNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT id, parent_id, project, title, summary, level, path_key, created_at, updated_at
		FROM memory_nodes WHERE id = ?`, id)

	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return MemoryNode{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return MemoryNode{}, err
	}
	return n, nil
}

// NodeSessions returns the sessions most recently linked to a node,
// with session context joined in.
func (s *Store) NodeSessions(nodeID string, limit int) ([]SessionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.Query(`SELECT ns.session_id, ns.created_at, s.timestamp, s.project, s.summary
		FROM memory_node_sources ns JOIN sessions s ON s.id = ns.session_id
		WHERE ns.node_id = ?
		ORDER BY ns.created_at DESC, s.timestamp DESC
		LIMIT ?`, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("node sessions: %w", err)
	}
	defer rows.Close()

	var refs []SessionRef
	for rows.Next() {
		var r SessionRef
		var linked, ts int64
		if err := rows.Scan(&r.SessionID, &linked, &ts, &r.Project, &r.Summary); err != nil {
			return nil, err
		}
		r.LinkedAt = time.Unix(linked, 0).UTC()
		r.Timestamp = time.Unix(ts, 0).UTC()
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (MemoryNode, error) {
	var n MemoryNode
	var parent sql.NullString
	var created, updated int64
	if err := row.Scan(&n.ID, &parent, &n.Project, &n.Title, &n.Summary, &n.Level, &n.PathKey, &created, &updated); err != nil {
		return MemoryNode{}, err
	}
	n.ParentID = parent.String
	n.CreatedAt = time.Unix(created, 0).UTC()
	n.UpdatedAt = time.Unix(updated, 0).UTC()
	return n, nil
}
