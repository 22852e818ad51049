package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// quantity and price are JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// AttachmentType says where an item attachment lives.
type AttachmentType string

const (
	AttachmentNone AttachmentType = "none"
	AttachmentURL  AttachmentType = "url"
	AttachmentFile AttachmentType = "file"
)

// Attachment is a datasheet-like slot on an item: nothing, an external URL, or
// a file stored in the datasheets upload directory.
type Attachment struct {
	Type  AttachmentType `json:"type" example:"file" enum:"none,url,file" validate:"omitempty,oneof=none url file"`
	Value string         `json:"value" example:"18c3f0a1b2_9f2e4c1d.pdf" validate:"max=2048"`
}

// Normalize maps the zero value and empty values onto AttachmentNone.
func (a Attachment) Normalize() Attachment {
	if a.Type == "" || a.Value == "" {
		return Attachment{Type: AttachmentNone}
	}
	return a
}

// StoredFile returns the upload filename when the attachment is a file.
func (a Attachment) StoredFile() (string, bool) {
	if a.Type == AttachmentFile && a.Value != "" {
		return a.Value, true
	}
	return "", false
}

type Item struct {
	ID            int64               `json:"id" example:"42" format:"int64" readOnly:"true"`
	Name          string              `json:"name" example:"M3x10 screws" binding:"required"`
	ArticleNumber *string             `json:"articleNumber" example:"DIN912-M3x10"`
	Color         *string             `json:"color" example:"black"`
	Manufacturer  *string             `json:"manufacturer" example:"Würth"`
	Retailer      *string             `json:"retailer" example:"Reichelt"`
	CategoryID    *int64              `json:"categoryId" example:"3" format:"int64"`
	CategoryName  *string             `json:"categoryName" readOnly:"true"`
	LocationID    *int64              `json:"locationId" example:"7" format:"int64"`
	LocationName  *string             `json:"locationName" readOnly:"true"`
	LocationPath  *string             `json:"locationPath" example:"Garage > Shelf A" readOnly:"true"`
	Quantity      decimal.NullDecimal `json:"quantity" swaggertype:"number" example:"100"`
	Unit          *string             `json:"unit" example:"pcs"`
	Price         decimal.NullDecimal `json:"price" swaggertype:"number" example:"4.99"`
	Link          *string             `json:"link" example:"https://example.com/product/123"`
	Datasheet     Attachment          `json:"datasheet"`
	AuxFile       Attachment          `json:"auxFile"`
	Image         *string             `json:"image" example:"18c3f0a1b2_9f2e4c1d.jpg"`
	Notes         *string             `json:"notes"`
	CreatedAt     time.Time           `json:"createdAt" readOnly:"true" swaggertype:"string" format:"date-time"`
	UpdatedAt     time.Time           `json:"updatedAt" readOnly:"true" swaggertype:"string" format:"date-time"`
	Tags          []Tag               `json:"tags"`
}

// ItemInput is the writable part of an item, used for both create and update.
// Update replaces every scalar field and the whole tag set.
type ItemInput struct {
	Name          string              `json:"name" validate:"required,max=255"`
	ArticleNumber *string             `json:"articleNumber" validate:"omitempty,max=255"`
	Color         *string             `json:"color" validate:"omitempty,max=100"`
	Manufacturer  *string             `json:"manufacturer" validate:"omitempty,max=255"`
	Retailer      *string             `json:"retailer" validate:"omitempty,max=255"`
	CategoryID    *int64              `json:"categoryId" validate:"omitempty,gt=0"`
	LocationID    *int64              `json:"locationId" validate:"omitempty,gt=0"`
	Quantity      decimal.NullDecimal `json:"quantity" swaggertype:"number"`
	Unit          *string             `json:"unit" validate:"omitempty,max=50"`
	Price         decimal.NullDecimal `json:"price" swaggertype:"number"`
	Link          *string             `json:"link" validate:"omitempty,max=2048"`
	Datasheet     Attachment          `json:"datasheet"`
	AuxFile       Attachment          `json:"auxFile"`
	Image         *string             `json:"image" validate:"omitempty,max=255"`
	Notes         *string             `json:"notes"`
	TagIDs        []int64             `json:"tagIds" validate:"omitempty,dive,gt=0"`
}

// BulkItemUpdate describes the change applied to every item of a bulk update.
// Absent fields leave items untouched; an explicit null category or location
// unassigns it.
type BulkItemUpdate struct {
	CategoryID   OptionalID `json:"categoryId" swaggertype:"integer"`
	LocationID   OptionalID `json:"locationId" swaggertype:"integer"`
	AddTagIDs    []int64    `json:"addTagIds" validate:"omitempty,dive,gt=0"`
	RemoveTagIDs []int64    `json:"removeTagIds" validate:"omitempty,dive,gt=0"`
}

// IsEmpty reports whether the update would change nothing.
func (u BulkItemUpdate) IsEmpty() bool {
	return !u.CategoryID.Set && !u.LocationID.Set && len(u.AddTagIDs) == 0 && len(u.RemoveTagIDs) == 0
}

type BulkUpdateRequest struct {
	ItemIDs []int64        `json:"item_ids" validate:"required,min=1,dive,gt=0"`
	Updates BulkItemUpdate `json:"updates"`
}
