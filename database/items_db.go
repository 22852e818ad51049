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

const itemSelect = `SELECT i.id, i.name, i.article_number, i.color, i.manufacturer, i.retailer,
	i.category_id, c.name, i.location_id, l.name, l.path,
	i.quantity, i.unit, i.price, i.link,
	i.datasheet_type, i.datasheet_value, i.aux_file_type, i.aux_file_value,
	i.image, i.notes, i.created_at, i.updated_at
	FROM items i
	LEFT JOIN locations l ON l.id = i.location_id
	LEFT JOIN categories c ON c.id = i.category_id`

// autocompleteLimit is the maximum number of name suggestions.
const autocompleteLimit = 10

func scanItem(row interface{ Scan(...any) error }) (models.Item, error) {
	var it models.Item
	var (
		articleNumber, color, manufacturer, retailer sql.NullString
		categoryName, locationName, locationPath     sql.NullString
		unit, link, image, notes                     sql.NullString
		categoryID, locationID                       sql.NullInt64
		dsType, dsValue, auxType, auxValue           sql.NullString
	)
	err := row.Scan(&it.ID, &it.Name, &articleNumber, &color, &manufacturer, &retailer,
		&categoryID, &categoryName, &locationID, &locationName, &locationPath,
		&it.Quantity, &unit, &it.Price, &link,
		&dsType, &dsValue, &auxType, &auxValue,
		&image, &notes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return it, err
	}
	it.ArticleNumber = models.NullStringPtr(articleNumber)
	it.Color = models.NullStringPtr(color)
	it.Manufacturer = models.NullStringPtr(manufacturer)
	it.Retailer = models.NullStringPtr(retailer)
	it.CategoryID = models.NullInt64Ptr(categoryID)
	it.CategoryName = models.NullStringPtr(categoryName)
	it.LocationID = models.NullInt64Ptr(locationID)
	it.LocationName = models.NullStringPtr(locationName)
	it.LocationPath = models.NullStringPtr(locationPath)
	it.Unit = models.NullStringPtr(unit)
	it.Link = models.NullStringPtr(link)
	it.Image = models.NullStringPtr(image)
	it.Notes = models.NullStringPtr(notes)
	it.Datasheet = models.Attachment{Type: models.AttachmentType(dsType.String), Value: dsValue.String}.Normalize()
	it.AuxFile = models.Attachment{Type: models.AttachmentType(auxType.String), Value: auxValue.String}.Normalize()
	it.Tags = []models.Tag{}
	return it, nil
}

// GetItem retrieves one item with its tags.
func (s *Store) GetItem(ctx context.Context, id int64) (models.Item, error) {
	return s.getItem(ctx, s.db, id)
}

func (s *Store) getItem(ctx context.Context, q queryer, id int64) (models.Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx, itemSelect+" WHERE i.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return it, fmt.Errorf("item %d: %w", id, ErrNotFound)
		}
		return it, fmt.Errorf("querying item %d: %w", id, err)
	}
	items := []models.Item{it}
	if err := attachTags(ctx, q, items); err != nil {
		return it, err
	}
	return items[0], nil
}

// attachTags loads the complete tag list of every item, in batches.
func attachTags(ctx context.Context, q queryer, items []models.Item) error {
	index := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for i := range items {
		index[items[i].ID] = i
		ids = append(ids, items[i].ID)
	}

	for _, batch := range idBatches(ids) {
		rows, err := q.QueryContext(ctx, `SELECT it.item_id, `+tagColumns+`
			FROM item_tags it
			JOIN tags t ON t.id = it.tag_id
			WHERE it.item_id IN (`+placeholders(len(batch))+`)
			ORDER BY t.name ASC`, idArgs(batch)...)
		if err != nil {
			return fmt.Errorf("querying item tags: %w", err)
		}
		for rows.Next() {
			var itemID int64
			var t models.Tag
			if err := rows.Scan(&itemID, &t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scanning item tag: %w", err)
			}
			if i, ok := index[itemID]; ok {
				items[i].Tags = append(items[i].Tags, t)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating item tags: %w", err)
		}
	}
	return nil
}

func itemArgs(in models.ItemInput) []any {
	ds := in.Datasheet.Normalize()
	aux := in.AuxFile.Normalize()
	return []any{
		strings.TrimSpace(in.Name),
		models.StringPtrToSQL(in.ArticleNumber),
		models.StringPtrToSQL(in.Color),
		models.StringPtrToSQL(in.Manufacturer),
		models.StringPtrToSQL(in.Retailer),
		models.ConvertInt64PtrToSQLNullInt64(in.CategoryID),
		models.ConvertInt64PtrToSQLNullInt64(in.LocationID),
		in.Quantity,
		models.StringPtrToSQL(in.Unit),
		in.Price,
		models.StringPtrToSQL(in.Link),
		string(ds.Type), ds.Value,
		string(aux.Type), aux.Value,
		models.StringPtrToSQL(in.Image),
		models.StringPtrToSQL(in.Notes),
	}
}

// CreateItem inserts an item together with its tag set.
func (s *Store) CreateItem(ctx context.Context, in models.ItemInput) (models.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Item{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	now := s.timestamp()
	args := append(itemArgs(in), now, now)
	res, err := tx.ExecContext(ctx, `INSERT INTO items
		(name, article_number, color, manufacturer, retailer, category_id, location_id,
		 quantity, unit, price, link, datasheet_type, datasheet_value, aux_file_type, aux_file_value,
		 image, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		logger.Error("CreateItem: Error inserting item '%s': %v", in.Name, err)
		return models.Item{}, fmt.Errorf("inserting item: %w", classifyWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Item{}, fmt.Errorf("getting last insert ID for item: %w", err)
	}
	if err := replaceItemTags(ctx, tx, id, in.TagIDs); err != nil {
		return models.Item{}, err
	}
	it, err := s.getItem(ctx, tx, id)
	if err != nil {
		return models.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Item{}, fmt.Errorf("committing item insert: %w", err)
	}
	return it, nil
}

// UpdateItem replaces every writable field and the tag set of an item and
// refreshes updatedAt. It also returns the item as it was before the update.
func (s *Store) UpdateItem(ctx context.Context, id int64, in models.ItemInput) (updated, previous models.Item, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return updated, previous, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	previous, err = s.getItem(ctx, tx, id)
	if err != nil {
		return updated, previous, err
	}

	args := append(itemArgs(in), s.timestamp(), id)
	_, err = tx.ExecContext(ctx, `UPDATE items SET
		name = ?, article_number = ?, color = ?, manufacturer = ?, retailer = ?, category_id = ?, location_id = ?,
		quantity = ?, unit = ?, price = ?, link = ?, datasheet_type = ?, datasheet_value = ?,
		aux_file_type = ?, aux_file_value = ?, image = ?, notes = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return updated, previous, fmt.Errorf("updating item %d: %w", id, classifyWriteError(err))
	}
	if err := replaceItemTags(ctx, tx, id, in.TagIDs); err != nil {
		return updated, previous, err
	}
	updated, err = s.getItem(ctx, tx, id)
	if err != nil {
		return updated, previous, err
	}
	if err := tx.Commit(); err != nil {
		return updated, previous, fmt.Errorf("committing item update: %w", err)
	}
	return updated, previous, nil
}

// DeleteItem removes an item and returns what was deleted so the caller can
// clean up attached files.
func (s *Store) DeleteItem(ctx context.Context, id int64) (models.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Item{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	it, err := s.getItem(ctx, tx, id)
	if err != nil {
		return it, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
		return it, fmt.Errorf("deleting item %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return it, fmt.Errorf("committing item delete: %w", err)
	}
	logger.Info("DeleteItem: Item ID %d deleted.", id)
	return it, nil
}

// ReplaceItemTags swaps the whole tag set of an item atomically.
func (s *Store) ReplaceItemTags(ctx context.Context, itemID int64, tagIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if n, err := countExisting(ctx, tx, "items", []int64{itemID}); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err := replaceItemTags(ctx, tx, itemID, tagIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE items SET updated_at = ? WHERE id = ?", s.timestamp(), itemID); err != nil {
		return fmt.Errorf("touching item %d: %w", itemID, err)
	}
	return tx.Commit()
}

func replaceItemTags(ctx context.Context, tx *sql.Tx, itemID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clearing tags of item %d: %w", itemID, err)
	}
	for _, tagID := range models.UniqueIDs(tagIDs) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO item_tags (item_id, tag_id) VALUES (?, ?)", itemID, tagID); err != nil {
			return fmt.Errorf("tagging item %d with tag %d: %w", itemID, tagID, classifyWriteError(err))
		}
	}
	return nil
}

// ImageReferenced reports whether any item uses name as its image.
func (s *Store) ImageReferenced(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM items WHERE image = ?)", name)
}

// DatasheetReferenced reports whether any item stores name in its datasheet
// or auxiliary file slot.
func (s *Store) DatasheetReferenced(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM items
		WHERE (datasheet_type = 'file' AND datasheet_value = ?)
		   OR (aux_file_type = 'file' AND aux_file_value = ?))`, name, name)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("checking file references: %w", err)
	}
	return found, nil
}

// AutocompleteNames returns up to ten distinct item names starting with prefix.
func (s *Store) AutocompleteNames(ctx context.Context, prefix string) ([]string, error) {
	names := []string{}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return names, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM items
		WHERE unicode_lower(name) LIKE ? ESCAPE '\'
		ORDER BY name ASC
		LIMIT ?`, escapeLike(strings.ToLower(prefix))+"%", autocompleteLimit)
	if err != nil {
		return nil, fmt.Errorf("querying item names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning item name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// BulkUpdateItems applies one change to many items in a single transaction.
// An unknown item, category, location or tag aborts the whole batch.
func (s *Store) BulkUpdateItems(ctx context.Context, itemIDs []int64, upd models.BulkItemUpdate) (int, error) {
	ids := models.UniqueIDs(itemIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	n, err := countExisting(ctx, tx, "items", ids)
	if err != nil {
		return 0, err
	}
	if n != len(ids) {
		return 0, fmt.Errorf("%d of %d items: %w", len(ids)-n, len(ids), ErrNotFound)
	}

	sets := []string{"updated_at = ?"}
	setArgs := []any{s.timestamp()}
	for _, ref := range []struct {
		column string
		table  string
		id     models.OptionalID
	}{
		{"category_id", "categories", upd.CategoryID},
		{"location_id", "locations", upd.LocationID},
	} {
		if !ref.id.Set {
			continue
		}
		if ref.id.Value != nil {
			if n, err := countExisting(ctx, tx, ref.table, []int64{*ref.id.Value}); err != nil {
				return 0, err
			} else if n == 0 {
				return 0, fmt.Errorf("%s %d: %w", ref.table, *ref.id.Value, ErrInvalidReference)
			}
		}
		sets = append(sets, ref.column+" = ?")
		setArgs = append(setArgs, models.ConvertInt64PtrToSQLNullInt64(ref.id.Value))
	}

	add := models.UniqueIDs(upd.AddTagIDs)
	if len(add) > 0 {
		if n, err := countExisting(ctx, tx, "tags", add); err != nil {
			return 0, err
		} else if n != len(add) {
			return 0, fmt.Errorf("%d of %d tags: %w", len(add)-n, len(add), ErrInvalidReference)
		}
	}
	remove := models.UniqueIDs(upd.RemoveTagIDs)

	update := "UPDATE items SET " + strings.Join(sets, ", ") + " WHERE id IN ("
	for _, batch := range idBatches(ids) {
		args := append(append([]any{}, setArgs...), idArgs(batch)...)
		if _, err := tx.ExecContext(ctx, update+placeholders(len(batch))+")", args...); err != nil {
			return 0, fmt.Errorf("bulk updating items: %w", classifyWriteError(err))
		}
		for _, tags := range idBatches(remove) {
			args := append(idArgs(batch), idArgs(tags)...)
			_, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id IN ("+placeholders(len(batch))+") AND tag_id IN ("+placeholders(len(tags))+")", args...)
			if err != nil {
				return 0, fmt.Errorf("removing tags: %w", err)
			}
		}
	}

	if len(add) > 0 {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)")
		if err != nil {
			return 0, fmt.Errorf("preparing tag insert: %w", err)
		}
		defer stmt.Close()
		for _, itemID := range ids {
			for _, tagID := range add {
				if _, err := stmt.ExecContext(ctx, itemID, tagID); err != nil {
					return 0, fmt.Errorf("adding tag %d to item %d: %w", tagID, itemID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing bulk update: %w", err)
	}
	logger.Info("BulkUpdateItems: updated %d items", len(ids))
	return len(ids), nil
}
