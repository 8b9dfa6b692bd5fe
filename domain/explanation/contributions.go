package explanation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Contributions is a feature -> score mapping that remembers insertion order.
// Recommendation text and importance ties depend on that order.
type Contributions struct {
	keys   []string
	values map[string]float64
}

// NewContributions returns an empty mapping
func NewContributions() *Contributions {
	return &Contributions{values: map[string]float64{}}
}

// Set stores a score. Re-setting a key keeps its original position.
func (c *Contributions) Set(key string, score float64) {
	if c.values == nil {
		c.values = map[string]float64{}
	}
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = score
}

// Get returns the score for key
func (c *Contributions) Get(key string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Keys returns keys in insertion order
func (c *Contributions) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of keys
func (c *Contributions) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Each visits entries in insertion order
func (c *Contributions) Each(fn func(key string, score float64)) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		fn(k, c.values[k])
	}
}

// MarshalJSON writes a JSON object whose member order matches insertion order
func (c *Contributions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c != nil {
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(c.values[k])
			if err != nil {
				return nil, fmt.Errorf("contribution %s: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object and keeps its member order
func (c *Contributions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = Contributions{values: map[string]float64{}}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("feature contributions must be a JSON object")
	}

	out := Contributions{values: map[string]float64{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("contribution %s: %w", key, err)
		}
		out.Set(key, score)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}
