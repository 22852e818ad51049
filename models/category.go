package models

import "time"

type Category struct {
	ID        int64     `json:"id" example:"3" format:"int64" readOnly:"true"`
	Name      string    `json:"name" example:"Fasteners" binding:"required"`
	ItemCount *int64    `json:"itemCount,omitempty" readOnly:"true"`
	CreatedAt time.Time `json:"createdAt" readOnly:"true" swaggertype:"string" format:"date-time"`
}

// CategoryDetails is a category together with its items.
type CategoryDetails struct {
	Category Category `json:"category"`
	Items    []Item   `json:"items"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
