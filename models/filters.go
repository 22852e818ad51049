package models

import "strings"

// FilterMode is how the selected values of one facet combine.
type FilterMode string

const (
	// ModeUnion matches items having at least one of the selected values.
	ModeUnion FilterMode = "union"
	// ModeIntersect matches items having all selected values. Category and
	// location are single-valued per item, so for them it behaves like union.
	ModeIntersect FilterMode = "intersect"
	// ModeExclude matches items having none of the selected values.
	ModeExclude FilterMode = "exclude"
)

// ParseFilterMode maps request input onto a mode; anything unknown is union.
func ParseFilterMode(s string) FilterMode {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeIntersect:
		return ModeIntersect
	case ModeExclude:
		return ModeExclude
	default:
		return ModeUnion
	}
}

// ItemFilters defines parameters for the item list query.
type ItemFilters struct {
	Search       string     `json:"search,omitempty"`
	CategoryIDs  []int64    `json:"categories,omitempty"`
	CategoryMode FilterMode `json:"categoryMode,omitempty"`
	LocationIDs  []int64    `json:"locations,omitempty"`
	LocationMode FilterMode `json:"locationMode,omitempty"`
	TagIDs       []int64    `json:"tags,omitempty"`
	TagMode      FilterMode `json:"tagMode,omitempty"`
	SortBy       string     `json:"sort,omitempty"`
	SortOrder    string     `json:"order,omitempty"`
}

// UniqueIDs returns ids without duplicates, keeping first-seen order.
func UniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
