package features

import (
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// DType is a coarse data-type tag inferred from observed values or from a
// target name. Source-side inference distinguishes date, int, float, enum
// and string; target-side inference only detects date vs string by keyword.
// The asymmetry is intentional and mirrors how the mapping specification
// names its attributes.
type DType string

const (
	DTypeDate   DType = "date"
	DTypeInt    DType = "int"
	DTypeFloat  DType = "float"
	DTypeEnum   DType = "enum"
	DTypeString DType = "string"
)

// dateKeywords are the target-name tokens that signal a date attribute.
var dateKeywords = map[string]struct{}{
	"date": {}, "dob": {}, "birth": {}, "day": {}, "mm": {}, "yy": {}, "year": {},
}

// nullSentinels are the value spellings treated as null.
var nullSentinels = map[string]struct{}{
	"": {}, "NA": {}, "na": {},
}

func isNull(v string) bool {
	_, ok := nullSentinels[v]
	return ok
}

// parseableDate reports whether s parses as a calendar date.
func parseableDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// InferSourceDType infers the dominant data type of a field from its
// sample values: date when more than 60% of non-null samples parse as
// dates, numeric when more than 80% parse as numbers with more than 5
// distinct values, enum when at most 10 distinct values cover less than
// half the samples, string otherwise.
func InferSourceDType(values []string) DType {
	var nonNull []string
	for _, v := range values {
		if !isNull(v) {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		return DTypeString
	}

	n := len(nonNull)
	nDate, nInt, nFloat := 0, 0, 0
	unique := make(map[string]struct{}, n)
	for _, v := range nonNull {
		if parseableDate(v) {
			nDate++
		}
		vv := strings.TrimSpace(v)
		unique[vv] = struct{}{}
		if isDigits(vv) {
			nInt++
		} else if _, err := strconv.ParseFloat(strings.ReplaceAll(vv, ",", ""), 64); err == nil {
			nFloat++
		}
	}

	if float64(nDate)/float64(n) > 0.6 {
		return DTypeDate
	}
	if float64(nInt+nFloat)/float64(n) > 0.8 && len(unique) > 5 {
		if nFloat > nInt {
			return DTypeFloat
		}
		return DTypeInt
	}
	if len(unique) <= 10 && float64(len(unique))/float64(n) < 0.5 {
		return DTypeEnum
	}
	return DTypeString
}

// InferTargetDType infers a target attribute's type from its name alone:
// date when any date-related keyword token appears, string otherwise.
func InferTargetDType(name string) DType {
	for _, tok := range tokens(name) {
		if _, ok := dateKeywords[tok]; ok {
			return DTypeDate
		}
	}
	return DTypeString
}
