package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultCriteria = "General assessment"
	ResumeCriteria  = "Based on CV verification."
)

// QuestionSpec is a question and the criteria a grader applies to its answer.
type QuestionSpec struct {
	Question string `json:"question"`
	Criteria string `json:"criteria"`
}

// UnmarshalJSON accepts both stored shapes: the legacy plain string and the
// {question, criteria} object. Legacy strings get DefaultCriteria.
func (q *QuestionSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty question")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*q = QuestionSpec{Question: strings.TrimSpace(text), Criteria: DefaultCriteria}
		return nil
	case '{':
		var obj struct {
			Question string `json:"question"`
			Criteria string `json:"criteria"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*q = QuestionSpec{
			Question: strings.TrimSpace(obj.Question),
			Criteria: strings.TrimSpace(obj.Criteria),
		}
		return nil
	default:
		return fmt.Errorf("unsupported question shape: %s", string(data))
	}
}

// Normalize trims the fields and fills empty criteria with fallback.
func (q QuestionSpec) Normalize(fallback string) QuestionSpec {
	q.Question = strings.TrimSpace(q.Question)
	q.Criteria = strings.TrimSpace(q.Criteria)
	if q.Criteria == "" {
		q.Criteria = fallback
	}
	return q
}
