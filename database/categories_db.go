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

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, false)
}

// ListCategoriesWithCounts is ListCategories with the number of items per category.
func (s *Store) ListCategoriesWithCounts(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, true)
}

func (s *Store) queryCategories(ctx context.Context, withCounts bool) ([]models.Category, error) {
	query := "SELECT c.id, c.name, c.created_at, 0 FROM categories c ORDER BY c.name ASC"
	if withCounts {
		query = `SELECT c.id, c.name, c.created_at, COUNT(i.id)
		         FROM categories c
		         LEFT JOIN items i ON i.category_id = c.id
		         GROUP BY c.id
		         ORDER BY c.name ASC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("queryCategories: Error querying categories: %v", err)
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		var count int64
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		if withCounts {
			c.ItemCount = &count
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a single category by its ID.
func (s *Store) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return c, fmt.Errorf("querying category %d: %w", id, err)
	}
	return c, nil
}

// GetCategoryDetails returns the category and every item filed under it.
func (s *Store) GetCategoryDetails(ctx context.Context, id int64) (models.CategoryDetails, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return models.CategoryDetails{}, err
	}
	items, err := s.ListItems(ctx, models.ItemFilters{CategoryIDs: []int64{id}, SortBy: "name"})
	if err != nil {
		return models.CategoryDetails{}, err
	}
	count := int64(len(items))
	c.ItemCount = &count
	return models.CategoryDetails{Category: c, Items: items}, nil
}

// CreateCategory inserts a category. If one with the same name (ignoring
// ASCII case) already exists it is returned instead and created is false.
func (s *Store) CreateCategory(ctx context.Context, name string) (c models.Category, created bool, err error) {
	name = strings.TrimSpace(name)
	err = s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM categories WHERE name = ? COLLATE NOCASE", name).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == nil {
		logger.Debug("CreateCategory: category '%s' already exists (ID: %d)", name, c.ID)
		return c, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return c, false, fmt.Errorf("checking for existing category '%s': %w", name, err)
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO categories (name, created_at) VALUES (?, ?)", name, s.timestamp())
	if err != nil {
		logger.Error("CreateCategory: Error inserting category '%s': %v", name, err)
		return c, false, fmt.Errorf("inserting category: %w", classifyWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return c, false, fmt.Errorf("getting last insert ID for category: %w", err)
	}
	c, err = s.GetCategory(ctx, id)
	return c, true, err
}

// UpdateCategory renames a category.
func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (models.Category, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE categories SET name = ? WHERE id = ?", strings.TrimSpace(name), id)
	if err != nil {
		return models.Category{}, fmt.Errorf("updating category %d: %w", id, classifyWriteError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category that no item references.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	var inUse int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE category_id = ?", id).Scan(&inUse); err != nil {
		return fmt.Errorf("counting items of category %d: %w", id, err)
	}
	if inUse > 0 {
		return fmt.Errorf("category %d is used by %d items: %w", id, inUse, ErrCategoryInUse)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category delete: %w", err)
	}
	logger.Info("DeleteCategory: Category ID %d deleted.", id)
	return nil
}
