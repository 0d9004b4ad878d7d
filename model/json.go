package model

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSON is an opaque structured payload stored verbatim in a text or jsonb
// column.
type JSON []byte

func NewJSON(v any) (JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSON(b), nil
}

func (j JSON) Decode(v any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], b...)
	return nil
}

func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", src)
	}
	return nil
}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

type answerEnvelope struct {
	Value any `json:"value"`
}

// WrapAnswer encodes a raw answer as {"value": raw} so any question type's
// native shape fits the same column.
func WrapAnswer(v any) (JSON, error) {
	return NewJSON(answerEnvelope{Value: v})
}

func UnwrapAnswer(j JSON) (any, error) {
	var env answerEnvelope
	if err := j.Decode(&env); err != nil {
		return nil, err
	}
	return env.Value, nil
}
