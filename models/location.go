package models

import "time"

// InventoryStatus tracks how completely a location has been catalogued.
type InventoryStatus string

const (
	InventoryNone     InventoryStatus = "none"
	InventoryPartial  InventoryStatus = "partial"
	InventoryComplete InventoryStatus = "complete"
)

// PathSeparator joins ancestor names in Location.Path.
const PathSeparator = " > "

type Location struct {
	ID              int64           `json:"id" example:"7" format:"int64" readOnly:"true"`
	Name            string          `json:"name" example:"Shelf A" binding:"required"`
	ParentID        *int64          `json:"parentId" example:"2" format:"int64"`
	Path            string          `json:"path" example:"Garage > Shelf A" readOnly:"true"`
	Description     *string         `json:"description"`
	InventoryStatus InventoryStatus `json:"inventoryStatus" example:"partial" enum:"none,partial,complete"`
	ItemCount       int64           `json:"itemCount" readOnly:"true"`
	CreatedAt       time.Time       `json:"createdAt" readOnly:"true" swaggertype:"string" format:"date-time"`
}

// LocationNode is a location with its nested children, as served by the tree endpoint.
type LocationNode struct {
	Location
	Children []*LocationNode `json:"children"`
}

// LocationDetails bundles a location with its direct children and the items stored there.
type LocationDetails struct {
	Location Location   `json:"location"`
	Items    []Item     `json:"items"`
	Children []Location `json:"children"`
}

type LocationCreateRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	ParentID        *int64          `json:"parentId" validate:"omitempty,gt=0"`
	Description     *string         `json:"description"`
	InventoryStatus InventoryStatus `json:"inventoryStatus" validate:"omitempty,oneof=none partial complete"`
}

// LocationUpdateRequest is a partial update; nil fields are left alone and an
// explicit null parentId turns the location into a root.
type LocationUpdateRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=255"`
	ParentID        OptionalID       `json:"parentId" swaggertype:"integer"`
	Description     *string          `json:"description"`
	InventoryStatus *InventoryStatus `json:"inventoryStatus" validate:"omitempty,oneof=none partial complete"`
}
