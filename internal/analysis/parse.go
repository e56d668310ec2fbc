package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// decodeLenient pulls a JSON object out of raw model output into v. It strips a
// surrounding markdown code fence, then falls back to the span between the first
// '{' and the last '}'. It reports whether decoding succeeded.
func decodeLenient(raw string, v any) bool {
	text := stripFence(raw)
	if text == "" {
		return false
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal([]byte(text), v) == nil {
		return true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), v) == nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// flexString accepts any JSON scalar. Non-string scalars keep their literal text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	lit := strings.TrimSpace(string(b))
	if lit == "null" || strings.HasPrefix(lit, "{") || strings.HasPrefix(lit, "[") {
		*s = ""
		return nil
	}
	*s = flexString(lit)
	return nil
}

// percent accepts a number or a numeric string such as "85" or "85%", rounds
// it and clamps it to 0..100. Anything else reads as 0.
type percent int

func (p *percent) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		var s string
		if json.Unmarshal(b, &s) != nil {
			*p = 0
			return nil
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if perr != nil {
			*p = 0
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) {
		f = 0
	}
	*p = percent(math.Round(math.Max(0, math.Min(100, f))))
	return nil
}

// stringList accepts an array of scalars or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*l = stringList{}
		} else {
			*l = stringList{single}
		}
		return nil
	}

	var items []flexString
	if err := json.Unmarshal(b, &items); err != nil {
		*l = stringList{}
		return nil
	}
	out := make(stringList, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(string(it)) != "" {
			out = append(out, string(it))
		}
	}
	*l = out
	return nil
}

// conditionList accepts an array of condition objects. A non-array value reads
// as an empty list and non-object elements are skipped.
type conditionList []rawCondition

func (l *conditionList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*l = conditionList{}
		return nil
	}
	out := make(conditionList, 0, len(items))
	for _, item := range items {
		if !strings.HasPrefix(strings.TrimSpace(string(item)), "{") {
			continue
		}
		var c rawCondition
		if json.Unmarshal(item, &c) != nil {
			continue
		}
		out = append(out, c)
	}
	*l = out
	return nil
}
