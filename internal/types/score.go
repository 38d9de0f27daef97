package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ErrorSentinel is the value a score takes when the analysis failed
const ErrorSentinel = "Error"

// Score is a model-reported percentage. The model may answer with a number
// or with free text; both are kept exactly as returned.
type Score struct {
	number json.Number
	text   string
}

func NumberScore(v float64) Score {
	return Score{number: json.Number(strconv.FormatFloat(v, 'f', -1, 64))}
}

func TextScore(s string) Score {
	return Score{text: s}
}

func (s Score) IsNumeric() bool { return s.number != "" }

// Float64 returns the numeric value, false when the score is text
func (s Score) Float64() (float64, bool) {
	if !s.IsNumeric() {
		return 0, false
	}
	f, err := s.number.Float64()
	return f, err == nil
}

func (s Score) String() string {
	if s.IsNumeric() {
		return s.number.String()
	}
	return s.text
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.IsNumeric() {
		return []byte(s.number), nil
	}
	return json.Marshal(s.text)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Score{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
	case json.Number:
		s.number = val
	case string:
		s.text = val
	default:
		s.text = string(data)
	}
	return nil
}
