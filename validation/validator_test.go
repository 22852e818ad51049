package validation

import (
	"errors"
	"strings"
	"testing"

	"inventory/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	color := "#ff0000"
	if err := ValidateStruct(&models.TagRequest{Name: "red", Color: &color}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStruct(&models.ItemInput{Name: "Screws", TagIDs: []int64{1, 2}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	badColor := "blue"
	badStatus := models.InventoryStatus("half")
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{name: "missing item name", input: &models.ItemInput{}, want: "name is required"},
		{name: "bad tag color", input: &models.TagRequest{Name: "x", Color: &badColor}, want: "color must be a hex color"},
		{name: "bad status", input: &models.LocationUpdateRequest{InventoryStatus: &badStatus}, want: "inventoryStatus must be one of: none partial complete"},
		{name: "bad attachment type", input: &models.ItemInput{Name: "x", Datasheet: models.Attachment{Type: "ftp"}}, want: "type must be one of"},
		{name: "empty bulk", input: &models.BulkUpdateRequest{}, want: "item_ids is required"},
		{name: "bad url", input: &models.DatasheetURLRequest{URL: "not a url"}, want: "url must be a valid URL"},
		{name: "negative tag id", input: &models.ItemInput{Name: "x", TagIDs: []int64{-1}}, want: "must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("message = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}
