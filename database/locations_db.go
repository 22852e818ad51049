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

const locationSelect = `SELECT l.id, l.name, l.parent_id, l.path, l.description, l.inventory_status, l.created_at,
	(SELECT COUNT(*) FROM items i WHERE i.location_id = l.id)
	FROM locations l`

func scanLocation(row interface{ Scan(...any) error }) (models.Location, error) {
	var loc models.Location
	var parentID sql.NullInt64
	var description sql.NullString
	var status string
	if err := row.Scan(&loc.ID, &loc.Name, &parentID, &loc.Path, &description, &status, &loc.CreatedAt, &loc.ItemCount); err != nil {
		return loc, err
	}
	loc.ParentID = models.NullInt64Ptr(parentID)
	loc.Description = models.NullStringPtr(description)
	loc.InventoryStatus = models.InventoryStatus(status)
	return loc, nil
}

func (s *Store) queryLocations(ctx context.Context, q queryer, where string, args ...any) ([]models.Location, error) {
	rows, err := q.QueryContext(ctx, locationSelect+" "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// ListLocations returns every location as a flat list ordered by path.
func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.queryLocations(ctx, s.db, "ORDER BY l.path ASC, l.id ASC")
}

// GetLocation retrieves a single location by its ID.
func (s *Store) GetLocation(ctx context.Context, id int64) (models.Location, error) {
	return s.getLocation(ctx, s.db, id)
}

func (s *Store) getLocation(ctx context.Context, q queryer, id int64) (models.Location, error) {
	loc, err := scanLocation(q.QueryRowContext(ctx, locationSelect+" WHERE l.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return loc, fmt.Errorf("location %d: %w", id, ErrNotFound)
		}
		return loc, fmt.Errorf("querying location %d: %w", id, err)
	}
	return loc, nil
}

// GetLocationTree returns the locations nested under their parents. A
// location whose parent no longer exists is reported as a root.
func (s *Store) GetLocationTree(ctx context.Context) ([]*models.LocationNode, error) {
	locations, err := s.queryLocations(ctx, s.db, "ORDER BY l.name ASC, l.id ASC")
	if err != nil {
		return nil, err
	}
	return BuildLocationTree(locations), nil
}

// BuildLocationTree assembles a forest from a flat list in two passes: index
// children by parent ID, then build recursively from the roots.
func BuildLocationTree(locations []models.Location) []*models.LocationNode {
	known := make(map[int64]bool, len(locations))
	for _, loc := range locations {
		known[loc.ID] = true
	}

	children := make(map[int64][]models.Location, len(locations))
	var roots []models.Location
	for _, loc := range locations {
		if loc.ParentID == nil || !known[*loc.ParentID] {
			roots = append(roots, loc)
			continue
		}
		children[*loc.ParentID] = append(children[*loc.ParentID], loc)
	}

	var build func(loc models.Location) *models.LocationNode
	build = func(loc models.Location) *models.LocationNode {
		node := &models.LocationNode{Location: loc, Children: []*models.LocationNode{}}
		for _, child := range children[loc.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	tree := make([]*models.LocationNode, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root))
	}
	return tree
}

// GetLocationDetails returns a location, its direct children and the items
// stored directly in it.
func (s *Store) GetLocationDetails(ctx context.Context, id int64) (models.LocationDetails, error) {
	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return models.LocationDetails{}, err
	}
	children, err := s.queryLocations(ctx, s.db, "WHERE l.parent_id = ? ORDER BY l.name ASC", id)
	if err != nil {
		return models.LocationDetails{}, err
	}
	items, err := s.ListItems(ctx, models.ItemFilters{LocationIDs: []int64{id}, SortBy: "name"})
	if err != nil {
		return models.LocationDetails{}, err
	}
	return models.LocationDetails{Location: loc, Items: items, Children: children}, nil
}

func childPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + models.PathSeparator + name
}

// CreateLocation inserts a location below an existing parent, or as a root.
func (s *Store) CreateLocation(ctx context.Context, req models.LocationCreateRequest) (models.Location, error) {
	name := strings.TrimSpace(req.Name)
	status := req.InventoryStatus
	if status == "" {
		status = models.InventoryNone
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	path := name
	if req.ParentID != nil {
		var parentPath string
		err := tx.QueryRowContext(ctx, "SELECT path FROM locations WHERE id = ?", *req.ParentID).Scan(&parentPath)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Location{}, fmt.Errorf("parent location %d: %w", *req.ParentID, ErrInvalidReference)
		}
		if err != nil {
			return models.Location{}, fmt.Errorf("querying parent location %d: %w", *req.ParentID, err)
		}
		path = childPath(parentPath, name)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO locations (name, parent_id, path, description, inventory_status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		name, models.ConvertInt64PtrToSQLNullInt64(req.ParentID), path, models.StringPtrToSQL(req.Description), string(status), s.timestamp())
	if err != nil {
		logger.Error("CreateLocation: Error inserting location '%s': %v", name, err)
		return models.Location{}, fmt.Errorf("inserting location: %w", classifyWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Location{}, fmt.Errorf("getting last insert ID for location: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Location{}, fmt.Errorf("committing location insert: %w", err)
	}
	return s.GetLocation(ctx, id)
}

// UpdateLocation applies a partial update. Renaming or reparenting rewrites
// the path of the location and of its whole subtree in the same transaction.
// Two concurrent moves within one subtree serialize on SQLite's write lock and
// the later commit determines the final paths.
func (s *Store) UpdateLocation(ctx context.Context, id int64, req models.LocationUpdateRequest) (models.Location, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	loc, err := s.getLocation(ctx, tx, id)
	if err != nil {
		return models.Location{}, err
	}

	name := loc.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	parentID := loc.ParentID
	if req.ParentID.Set {
		parentID = req.ParentID.Value
	}
	description := loc.Description
	if req.Description != nil {
		description = req.Description
	}
	status := loc.InventoryStatus
	if req.InventoryStatus != nil {
		status = *req.InventoryStatus
	}

	parentPath := ""
	if parentID != nil {
		if err := checkNoCycle(ctx, tx, id, *parentID); err != nil {
			return models.Location{}, err
		}
		err := tx.QueryRowContext(ctx, "SELECT path FROM locations WHERE id = ?", *parentID).Scan(&parentPath)
		if err != nil {
			return models.Location{}, fmt.Errorf("querying parent location %d: %w", *parentID, err)
		}
	}
	path := childPath(parentPath, name)

	_, err = tx.ExecContext(ctx,
		"UPDATE locations SET name = ?, parent_id = ?, path = ?, description = ?, inventory_status = ? WHERE id = ?",
		name, models.ConvertInt64PtrToSQLNullInt64(parentID), path, models.StringPtrToSQL(description), string(status), id)
	if err != nil {
		return models.Location{}, fmt.Errorf("updating location %d: %w", id, classifyWriteError(err))
	}

	if path != loc.Path {
		if err := cascadePaths(ctx, tx, id, path); err != nil {
			return models.Location{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Location{}, fmt.Errorf("committing location update: %w", err)
	}
	return s.GetLocation(ctx, id)
}

// checkNoCycle walks the ancestor chain of newParent and fails if id is on it.
func checkNoCycle(ctx context.Context, q queryer, id, newParent int64) error {
	seen := map[int64]bool{}
	cur := sql.NullInt64{Int64: newParent, Valid: true}
	for cur.Valid {
		if cur.Int64 == id {
			return fmt.Errorf("moving location %d below %d: %w", id, newParent, ErrLocationCycle)
		}
		if seen[cur.Int64] {
			return fmt.Errorf("ancestor chain of location %d loops: %w", newParent, ErrLocationCycle)
		}
		seen[cur.Int64] = true

		var parent sql.NullInt64
		err := q.QueryRowContext(ctx, "SELECT parent_id FROM locations WHERE id = ?", cur.Int64).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			if cur.Int64 == newParent {
				return fmt.Errorf("parent location %d: %w", newParent, ErrInvalidReference)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("walking ancestors of location %d: %w", newParent, err)
		}
		cur = parent
	}
	return nil
}

// cascadePaths rewrites the paths of every descendant of parentID, depth-first.
func cascadePaths(ctx context.Context, tx *sql.Tx, parentID int64, parentPath string) error {
	type child struct {
		id   int64
		name string
	}
	rows, err := tx.QueryContext(ctx, "SELECT id, name FROM locations WHERE parent_id = ? ORDER BY id", parentID)
	if err != nil {
		return fmt.Errorf("querying children of location %d: %w", parentID, err)
	}
	var children []child
	for rows.Next() {
		var c child
		if err := rows.Scan(&c.id, &c.name); err != nil {
			rows.Close()
			return fmt.Errorf("scanning child location: %w", err)
		}
		children = append(children, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating children of location %d: %w", parentID, err)
	}

	for _, c := range children {
		path := childPath(parentPath, c.name)
		if _, err := tx.ExecContext(ctx, "UPDATE locations SET path = ? WHERE id = ?", path, c.id); err != nil {
			return fmt.Errorf("updating path of location %d: %w", c.id, err)
		}
		if err := cascadePaths(ctx, tx, c.id, path); err != nil {
			return err
		}
	}
	return nil
}

// DeleteLocation removes a location that holds no items and has no children.
func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	var items, children int
	err = tx.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM items WHERE location_id = l.id),
		(SELECT COUNT(*) FROM locations WHERE parent_id = l.id)
		FROM locations l WHERE l.id = ?`, id).Scan(&items, &children)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking usage of location %d: %w", id, err)
	}
	if items > 0 {
		return fmt.Errorf("location %d holds %d items: %w", id, items, ErrLocationInUse)
	}
	if children > 0 {
		return fmt.Errorf("location %d has %d child locations: %w", id, children, ErrLocationHasChildren)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM locations WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting location %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing location delete: %w", err)
	}
	logger.Info("DeleteLocation: Location ID %d deleted.", id)
	return nil
}
