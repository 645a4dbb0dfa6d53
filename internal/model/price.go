package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Price is a whole-euro amount. The API sends it as a number or a numeric
// string; fractional parts are truncated.
type Price int

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid price %q", data)
	}
	// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive.
	if f < math.MinInt || f >= math.MaxInt {
		return fmt.Errorf("price %q out of range", data)
	}
	*p = Price(int(f))
	return nil
}
