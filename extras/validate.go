package extras

import (
	"math"
	"strings"
	"time"

	"github.com/mbolis/quick-forms/location"
)

const dateLayout = "2006-01-02"

func kindName(k location.FieldKind) string {
	switch k {
	case location.NumberField:
		return "a number"
	case location.IntegerField:
		return "an integer"
	case location.BoolField:
		return "a boolean"
	case location.DateField:
		return "a date (YYYY-MM-DD)"
	}
	return "a string"
}

func accepts(k location.FieldKind, v any) bool {
	switch k {
	case location.NumberField:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case location.IntegerField:
		switch v := v.(type) {
		case int, int64, int32:
			return true
		case float64:
			return v == math.Trunc(v) && !math.IsInf(v, 0)
		}
		return false
	case location.BoolField:
		_, ok := v.(bool)
		return ok
	case location.DateField:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(dateLayout, s)
		return err == nil
	}
	_, ok := v.(string)
	return ok
}

// checkField returns the reason v cannot be stored in col, or "".
func checkField(col location.Column, v any) string {
	if v == nil {
		if col.NotNull {
			return "cannot be null"
		}
		return ""
	}
	if !accepts(col.Kind, v) {
		return "must be " + kindName(col.Kind)
	}
	if len(col.Enum) > 0 {
		s := v.(string)
		for _, e := range col.Enum {
			if s == e {
				return ""
			}
		}
		return "must be one of " + strings.Join(col.Enum, ", ")
	}
	return ""
}
