package submission

import (
	"strconv"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/model"
)

type valueKind int

const (
	anyValue valueKind = iota
	stringValue
	numberValue
	boolValue
	listValue
)

// kinds of the seeded question types; other codes accept any value
var kinds = map[string]valueKind{
	"TEXT":         stringValue,
	"TEXTAREA":     stringValue,
	"EMAIL":        stringValue,
	"SELECT":       stringValue,
	"FILE":         stringValue,
	"DATE":         stringValue,
	"NUMBER":       numberValue,
	"RATING":       numberValue,
	"BOOLEAN":      boolValue,
	"MULTI_SELECT": listValue,
	"CHECKBOX":     listValue,
}

func (k valueKind) String() string {
	switch k {
	case stringValue:
		return "a string"
	case numberValue:
		return "a number"
	case boolValue:
		return "a boolean"
	case listValue:
		return "a list"
	}
	return "any value"
}

func (k valueKind) accepts(v any) bool {
	switch k {
	case stringValue:
		_, ok := v.(string)
		return ok
	case numberValue:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case boolValue:
		_, ok := v.(bool)
		return ok
	case listValue:
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	}
	return true
}

func blank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// checkAnswers validates answers against the questions of a form. A
// partial check skips required questions that are absent from answers.
func checkAnswers(questions []model.Question, answers []model.AnswerInput, partial bool) error {
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var v formerr.Validation
	if len(answers) == 0 {
		v.Add("answers", "at least one answer is required")
		return v.Err()
	}

	seen := make(map[int64]bool, len(answers))
	for _, a := range answers {
		field := formatField(a.QuestionID)
		q, ok := byID[a.QuestionID]
		if !ok {
			v.Add(field, "question %d does not belong to this form", a.QuestionID)
			continue
		}
		if seen[a.QuestionID] {
			v.Add(field, "answered twice")
			continue
		}
		seen[a.QuestionID] = true

		if blank(a.Value) {
			if q.IsRequired {
				v.Add(field, "%q is required", q.Title)
			}
			continue
		}
		if k := kinds[q.TypeCode]; !k.accepts(a.Value) {
			v.Add(field, "%s answer must be %s", q.TypeCode, k)
		}
	}

	if !partial {
		for _, q := range questions {
			if q.IsRequired && !seen[q.ID] {
				v.Add(formatField(q.ID), "%q is required", q.Title)
			}
		}
	}
	return v.Err()
}

func formatField(questionID int64) string {
	return "answers." + strconv.FormatInt(questionID, 10)
}
