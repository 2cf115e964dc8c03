package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// OriginConversion is the reserved key standing for the primary file. It is
// synthesized on read and never stored.
const OriginConversion = "origin"

// Conversion is one derived variant of an asset.
type Conversion struct {
	Name      string `json:"-"`
	Path      string `json:"path"`
	ImageSize string `json:"image_size,omitempty"`
}

// Conversions is the ordered manifest of derived variants keyed by name. It
// persists as a JSON object whose key order follows insertion order.
type Conversions []Conversion

// Get returns the entry stored under name.
func (c Conversions) Get(name string) (Conversion, bool) {
	for _, conv := range c {
		if conv.Name == name {
			return conv, true
		}
	}
	return Conversion{}, false
}

// Set adds or replaces the entry for conv.Name, keeping the position of an
// existing entry.
func (c *Conversions) Set(conv Conversion) error {
	if conv.Name == "" {
		return fmt.Errorf("conversion name is required")
	}
	if conv.Name == OriginConversion {
		return fmt.Errorf("conversion name %q is reserved", OriginConversion)
	}
	for i := range *c {
		if (*c)[i].Name == conv.Name {
			(*c)[i] = conv
			return nil
		}
	}
	*c = append(*c, conv)
	return nil
}

// Delete removes the entry for name if present.
func (c *Conversions) Delete(name string) {
	out := (*c)[:0]
	for _, conv := range *c {
		if conv.Name != name {
			out = append(out, conv)
		}
	}
	*c = out
}

// Names lists entry names in manifest order.
func (c Conversions) Names() []string {
	names := make([]string, 0, len(c))
	for _, conv := range c {
		names = append(names, conv.Name)
	}
	return names
}

// Paths lists every derived blob path.
func (c Conversions) Paths() []string {
	paths := make([]string, 0, len(c))
	for _, conv := range c {
		if conv.Path != "" {
			paths = append(paths, conv.Path)
		}
	}
	return paths
}

func (c Conversions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, conv := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(conv.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(conv)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Conversions) UnmarshalJSON(data []byte) error {
	*c = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("conversions: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("conversions: expected key, got %v", tok)
		}
		var conv Conversion
		if err := dec.Decode(&conv); err != nil {
			return fmt.Errorf("conversions[%s]: %w", name, err)
		}
		if name == OriginConversion {
			continue
		}
		conv.Name = name
		*c = append(*c, conv)
	}
	_, err = dec.Token()
	return err
}

// Value implements driver.Valuer.
func (c Conversions) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (c *Conversions) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("conversions: unsupported scan type %T", value)
	}
}

// GormDataType declares the column type.
func (Conversions) GormDataType() string {
	return "json"
}
