package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type MetadataEntry struct {
	Key   string `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
}

// Metadata is an insertion-ordered string map. It encodes to a JSON object
// with keys in insertion order.
type Metadata []MetadataEntry

func (m Metadata) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set overwrites an existing key in place, otherwise appends.
func (m Metadata) Set(key, value string) Metadata {
	for i, e := range m {
		if e.Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, MetadataEntry{Key: key, Value: value})
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return append(Metadata(nil), m...)
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata must be a json object")
	}
	var out Metadata
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata key must be a string")
		}
		var value any
		if err = dec.Decode(&value); err != nil {
			return err
		}
		switch v := value.(type) {
		case string:
			out = out.Set(key, v)
		case nil:
			out = out.Set(key, "")
		default:
			out = out.Set(key, fmt.Sprint(v))
		}
	}
	if _, err = dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value encodes to a json string so it can bind to a jsonb column.
func (m Metadata) Value() (driver.Value, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("unsupported metadata source type %T", src)
}
