package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"inventory/logger"
	"inventory/models"
)

const tagColumns = "t.id, t.name, t.color, t.created_at"

func scanTag(row interface{ Scan(...any) error }, t *models.Tag) error {
	return row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+tagColumns+" FROM tags t ORDER BY t.name ASC")
	if err != nil {
		logger.Error("ListTags: Error querying all tags: %v", err)
		return nil, fmt.Errorf("querying all tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := scanTag(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListTagsWithCounts returns all tags with the number of items carrying each.
func (s *Store) ListTagsWithCounts(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+`, COUNT(it.item_id)
		FROM tags t
		LEFT JOIN item_tags it ON it.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name ASC`)
	if err != nil {
		logger.Error("ListTagsWithCounts: Error querying tags: %v", err)
		return nil, fmt.Errorf("querying tags with counts: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		var count int64
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		t.ItemCount = &count
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetTag retrieves a single tag by its ID.
func (s *Store) GetTag(ctx context.Context, id int64) (models.Tag, error) {
	var t models.Tag
	err := scanTag(s.db.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags t WHERE t.id = ?", id), &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, fmt.Errorf("tag %d: %w", id, ErrNotFound)
		}
		logger.Error("GetTag: Error querying tag ID %d: %v", id, err)
		return t, fmt.Errorf("querying tag ID %d: %w", id, err)
	}
	return t, nil
}

// GetTagDetails returns the tag and every item carrying it.
func (s *Store) GetTagDetails(ctx context.Context, id int64) (models.TagDetails, error) {
	t, err := s.GetTag(ctx, id)
	if err != nil {
		return models.TagDetails{}, err
	}
	items, err := s.ListItems(ctx, models.ItemFilters{TagIDs: []int64{id}, SortBy: "name"})
	if err != nil {
		return models.TagDetails{}, err
	}
	count := int64(len(items))
	t.ItemCount = &count
	return models.TagDetails{Tag: t, Items: items}, nil
}

// CreateTag inserts a tag. A tag whose name already exists (ignoring ASCII
// case) is returned unchanged with created set to false.
func (s *Store) CreateTag(ctx context.Context, name string, color *string) (t models.Tag, created bool, err error) {
	name = strings.TrimSpace(name)
	err = scanTag(s.db.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags t WHERE t.name = ? COLLATE NOCASE", name), &t)
	if err == nil {
		logger.Debug("CreateTag: Tag with name '%s' already exists (ID: %d).", name, t.ID)
		return t, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return t, false, fmt.Errorf("checking for existing tag '%s': %w", name, err)
	}

	c := models.DefaultTagColor
	if color != nil && *color != "" {
		c = *color
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO tags (name, color, created_at) VALUES (?, ?, ?)", name, c, s.timestamp())
	if err != nil {
		logger.Error("CreateTag: Error executing insert for tag '%s': %v", name, err)
		return t, false, fmt.Errorf("executing insert tag: %w", classifyWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return t, false, fmt.Errorf("getting last insert ID for tag: %w", err)
	}
	t, err = s.GetTag(ctx, id)
	return t, true, err
}

// UpdateTag renames a tag and, when color is non-nil, recolors it.
func (s *Store) UpdateTag(ctx context.Context, id int64, name string, color *string) (models.Tag, error) {
	query := "UPDATE tags SET name = ? WHERE id = ?"
	args := []any{strings.TrimSpace(name), id}
	if color != nil && *color != "" {
		query = "UPDATE tags SET name = ?, color = ? WHERE id = ?"
		args = []any{strings.TrimSpace(name), *color, id}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Tag{}, fmt.Errorf("updating tag %d: %w", id, classifyWriteError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Tag{}, fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return s.GetTag(ctx, id)
}

// DeleteTag removes a tag and its item associations. Items keep their other tags.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE tag_id = ?", id); err != nil {
		return fmt.Errorf("deleting associations of tag %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		logger.Error("DeleteTag: Error executing delete for tag ID %d: %v", id, err)
		return fmt.Errorf("executing delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tag delete: %w", err)
	}
	logger.Info("DeleteTag: Tag ID %d deleted.", id)
	return nil
}
