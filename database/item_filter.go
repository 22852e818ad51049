package database

import (
	"context"
	"fmt"
	"strings"

	"inventory/models"
)

// searchColumns are matched by every search term; a term hits when any of
// them contains it.
var searchColumns = []string{
	"i.name", "i.article_number", "i.color", "i.manufacturer", "i.retailer", "i.notes",
	"c.name", "l.name", "l.path",
}

var sortColumns = map[string]string{
	"created_at": "i.created_at",
	"updated_at": "i.updated_at",
	"name":       "i.name COLLATE NOCASE",
	"quantity":   "i.quantity",
	"price":      "i.price",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// itemQuery accumulates the pieces of the filtered item SELECT.
type itemQuery struct {
	joins      []string
	joinArgs   []any
	where      []string
	whereArgs  []any
	groupBy    string
	having     string
	havingArgs []any
	orderBy    string
}

func (q *itemQuery) sql() (string, []any) {
	var b strings.Builder
	b.WriteString(itemSelect)
	for _, j := range q.joins {
		b.WriteString("\n\t")
		b.WriteString(j)
	}
	if len(q.where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	if q.groupBy != "" {
		b.WriteString("\n\tGROUP BY ")
		b.WriteString(q.groupBy)
	}
	if q.having != "" {
		b.WriteString("\n\tHAVING ")
		b.WriteString(q.having)
	}
	b.WriteString("\n\tORDER BY ")
	b.WriteString(q.orderBy)

	args := make([]any, 0, len(q.joinArgs)+len(q.whereArgs)+len(q.havingArgs))
	args = append(args, q.joinArgs...)
	args = append(args, q.whereArgs...)
	args = append(args, q.havingArgs...)
	return b.String(), args
}

// buildItemQuery turns the filters into a parameterized SELECT. Only column
// names from fixed whitelists are ever interpolated.
func buildItemQuery(f models.ItemFilters) (string, []any) {
	q := &itemQuery{}

	tagIDs := models.UniqueIDs(f.TagIDs)
	tagMode := models.ParseFilterMode(string(f.TagMode))
	if len(tagIDs) > 0 && tagMode != models.ModeExclude {
		q.joins = append(q.joins, "INNER JOIN item_tags it ON it.item_id = i.id AND it.tag_id IN ("+placeholders(len(tagIDs))+")")
		q.joinArgs = append(q.joinArgs, idArgs(tagIDs)...)
		q.groupBy = "i.id"
		if tagMode == models.ModeIntersect {
			// Distinct, so a repeated join row can never inflate the count.
			q.having = "COUNT(DISTINCT it.tag_id) = ?"
			q.havingArgs = append(q.havingArgs, len(tagIDs))
		}
	}

	for _, term := range strings.Fields(f.Search) {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		ors := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = "unicode_lower(COALESCE(" + col + ", '')) LIKE ? ESCAPE '\\'"
			q.whereArgs = append(q.whereArgs, pattern)
		}
		q.where = append(q.where, "("+strings.Join(ors, " OR ")+")")
	}

	// Category and location are single-valued per item, so intersect selects
	// the same rows as union.
	addSingleValued := func(col string, ids []int64, mode models.FilterMode) {
		ids = models.UniqueIDs(ids)
		if len(ids) == 0 {
			return
		}
		in := placeholders(len(ids))
		if models.ParseFilterMode(string(mode)) == models.ModeExclude {
			q.where = append(q.where, "("+col+" IS NULL OR "+col+" NOT IN ("+in+"))")
		} else {
			q.where = append(q.where, col+" IN ("+in+")")
		}
		q.whereArgs = append(q.whereArgs, idArgs(ids)...)
	}
	addSingleValued("i.category_id", f.CategoryIDs, f.CategoryMode)
	addSingleValued("i.location_id", f.LocationIDs, f.LocationMode)

	if len(tagIDs) > 0 && tagMode == models.ModeExclude {
		q.where = append(q.where, "i.id NOT IN (SELECT item_id FROM item_tags WHERE tag_id IN ("+placeholders(len(tagIDs))+"))")
		q.whereArgs = append(q.whereArgs, idArgs(tagIDs)...)
	}

	q.orderBy = orderClause(f.SortBy, f.SortOrder)
	return q.sql()
}

func orderClause(sortBy, order string) string {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	col, ok := sortColumns[sortBy]
	if !ok {
		sortBy, col = "created_at", sortColumns["created_at"]
	}
	dir := "ASC"
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "DESC":
		dir = "DESC"
	case "ASC":
	default:
		if sortBy == "created_at" {
			dir = "DESC"
		}
	}
	return fmt.Sprintf("%s %s, i.id %s", col, dir, dir)
}

// ListItems returns the items matching the filters, newest first unless
// another sort is requested, each with its full tag list.
func (s *Store) ListItems(ctx context.Context, f models.ItemFilters) ([]models.Item, error) {
	query, args := buildItemQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item rows: %w", err)
	}

	if err := attachTags(ctx, s.db, items); err != nil {
		return nil, err
	}
	return items, nil
}
