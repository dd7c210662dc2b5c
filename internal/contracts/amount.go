package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Amount is a smallest-unit value carried as a base-10 JSON string so that
// clients using float64 numbers cannot lose precision. Bare JSON integers
// are accepted on input.
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", string(b))
	}
	*a = Amount(v)
	return nil
}
