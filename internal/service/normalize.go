package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

var numericToken = regexp.MustCompile(`-?\d[\d.,]*`)

// ExtractNumber returns v as a number. Strings yield their first numeric
// substring with thousands separators removed, so "Rp 1.200.000/ha" is 1200000
// and "2.5 t/ha" is 2.5. Anything else yields nil.
func ExtractNumber(v interface{}) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		return parseNumericString(n)
	default:
		return nil
	}
}

func parseNumericString(s string) *float64 {
	tok := numericToken.FindString(s)
	if tok == "" {
		return nil
	}
	tok = strings.TrimRight(tok, ".,")

	negative := strings.HasPrefix(tok, "-")
	tok = strings.TrimPrefix(tok, "-")

	dots := strings.Count(tok, ".")
	commas := strings.Count(tok, ",")

	switch {
	case dots > 0 && commas > 0:
		// The separator that appears last is the decimal point.
		if strings.LastIndex(tok, ".") > strings.LastIndex(tok, ",") {
			tok = strings.ReplaceAll(tok, ",", "")
		} else {
			tok = strings.ReplaceAll(tok, ".", "")
			tok = strings.Replace(tok, ",", ".", 1)
		}
	case dots > 1:
		tok = strings.ReplaceAll(tok, ".", "")
	case commas > 1:
		tok = strings.ReplaceAll(tok, ",", "")
	case dots == 1:
		tok = singleSeparator(tok, ".")
	case commas == 1:
		tok = singleSeparator(tok, ",")
	}

	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil
	}
	if negative {
		f = -f
	}
	return &f
}

// singleSeparator treats "1.200" and "12,500" as grouped thousands and
// anything else ("2.5", "0.125", "1234,5") as a decimal.
func singleSeparator(tok, sep string) string {
	i := strings.Index(tok, sep)
	before, after := tok[:i], tok[i+1:]
	if len(after) == 3 && len(before) >= 1 && len(before) <= 3 && before != "0" {
		return before + after
	}
	return before + "." + after
}

// IntValue rounds ExtractNumber's result.
func IntValue(v interface{}) *int {
	f := ExtractNumber(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseISODate parses an ISO 8601 date string; any failure yields nil.
func ParseISODate(v interface{}) *datatypes.Date {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
			return &d
		}
	}
	return nil
}

// TextValue renders a model field for a text column. Arrays of strings are
// joined with ", ".
func TextValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := TextValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// JSONValue encodes v for a JSON column; nil stays NULL.
func JSONValue(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
