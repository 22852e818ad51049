package models

import "time"

// DefaultTagColor is applied when a tag is created without a color.
const DefaultTagColor = "#3498db"

// Tag represents a single tag that can be applied to items.
type Tag struct {
	ID        int64     `json:"id" example:"1" format:"int64" readOnly:"true"`
	Name      string    `json:"name" example:"electronics" binding:"required"`
	Color     string    `json:"color" example:"#3498db"` // Hex code, e.g. #FF0000
	ItemCount *int64    `json:"itemCount,omitempty" readOnly:"true"`
	CreatedAt time.Time `json:"createdAt" readOnly:"true" swaggertype:"string" format:"date-time"`
}

// TagDetails is a tag together with every item carrying it.
type TagDetails struct {
	Tag   Tag    `json:"tag"`
	Items []Item `json:"items"`
}

type TagRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"` // Pointer so a missing color keeps the default
}
