package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Score is a 0-100 integer score as reported by a model.
// Models return integers, floats or numeric strings, so all three are accepted.
type Score int

// UnmarshalJSON implements json.Unmarshaler
func (s *Score) UnmarshalJSON(data []byte) error {
	v, err := parseScore(data)
	if err != nil {
		return err
	}
	if v == nil {
		*s = 0
		return nil
	}
	*s = Score(clamp(int(math.Round(*v)), 0, 100))
	return nil
}

// Int returns the score as an int
func (s Score) Int() int {
	return int(s)
}

// parseScore reads a number, a numeric string or a percentage.
// null and blank strings yield nil.
func parseScore(data []byte) (*float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var f float64
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil, err
		}
		str = strings.TrimSuffix(strings.TrimSpace(str), "%")
		if str == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, err
		}
		f = v
	} else if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, strconv.ErrRange
	}
	return &f, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
