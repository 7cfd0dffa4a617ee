package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Snowflake is a Discord id. It is stored as a 64-bit integer and travels as
// a JSON string, since JavaScript numbers cannot hold it exactly. Decoding
// also accepts a bare JSON number.
type Snowflake int64

func (s Snowflake) String() string {
	return strconv.FormatInt(int64(s), 10)
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(str)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("invalid snowflake %s", data)
	}
	*s = Snowflake(v)
	return nil
}

// Mention formats the id as a channel mention.
func (s Snowflake) Mention() string {
	return "<#" + s.String() + ">"
}

// SnowflakePtr returns a pointer to s, for nullable columns.
func SnowflakePtr(s Snowflake) *Snowflake {
	return &s
}
