package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StringSlice is stored as a JSON array in a CLOB column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		// nil slices are stored as "[]" so reads never see NULL
		return "[]", nil
	}
	return jsonValue(s)
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	*s = StringSlice{}
	return jsonScan("StringSlice", value, s)
}

// QuestionJSON is the stored shape of one question.
type QuestionJSON struct {
	ID          int      `json:"id"`
	Content     string   `json:"content"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
	Type        string   `json:"type"`
}

// QuestionList is stored as a JSON array in a CLOB column.
type QuestionList []QuestionJSON

// Value implements the driver.Valuer interface
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	return jsonValue(q)
}

// Scan implements the sql.Scanner interface
func (q *QuestionList) Scan(value interface{}) error {
	*q = QuestionList{}
	return jsonScan("QuestionList", value, q)
}

func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// jsonScan treats NULL, empty and "null" as an empty list.
func jsonScan(name string, value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New(name + " Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
