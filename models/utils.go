package models

import (
	"bytes"
	"database/sql"
	"strconv"
)

// OptionalID is a nullable ID that remembers whether it was present in the
// JSON document at all, so "absent" and "null" can be told apart.
type OptionalID struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON is only invoked when the key is present.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return err
	}
	o.Value = &id
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(*o.Value, 10)), nil
}

// SetID returns a present OptionalID carrying id.
func SetID(id int64) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// ConvertInt64PtrToSQLNullInt64 converts a pointer to an int64 to sql.NullInt64.
func ConvertInt64PtrToSQLNullInt64(ptr *int64) sql.NullInt64 {
	if ptr == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *ptr, Valid: true}
}

// NullStringPtr converts a nullable column value into a JSON-friendly pointer.
func NullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// NullInt64Ptr converts a nullable column value into a JSON-friendly pointer.
func NullInt64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// StringPtrToSQL stores empty strings as NULL.
func StringPtrToSQL(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
