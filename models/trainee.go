package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ViewportSize is the window size a ruleset expects pages to be rendered at.
type ViewportSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Coeff is a single feature name and its coefficient.
type Coeff struct {
	Name  string
	Value float64
}

// Coeffs is an ordered feature-name to coefficient mapping. Its order defines
// the meaning of every position in a FeatureVector's features.
//
// On the wire it is accepted either as an array of [name, value] pairs or as a
// JSON object, in which case key order is preserved.
type Coeffs []Coeff

// Names returns the feature names in coefficient order.
func (c Coeffs) Names() []string {
	names := make([]string, len(c))
	for i, coeff := range c {
		names[i] = coeff.Name
	}
	return names
}

// MarshalJSON encodes the coefficients as [name, value] pairs.
func (c Coeffs) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(c))
	for i, coeff := range c {
		pairs[i] = [2]any{coeff.Name, coeff.Value}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes pairs or an object, keeping order either way.
func (c *Coeffs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []json.RawMessage
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return fmt.Errorf("failed to decode coeffs: %w", err)
		}
		out := make(Coeffs, 0, len(pairs))
		for i, raw := range pairs {
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("coeffs entry %d is not a [name, value] pair", i)
			}
			var coeff Coeff
			if err := json.Unmarshal(pair[0], &coeff.Name); err != nil {
				return fmt.Errorf("coeffs entry %d: bad name: %w", i, err)
			}
			if err := json.Unmarshal(pair[1], &coeff.Value); err != nil {
				return fmt.Errorf("coeffs entry %d: bad value: %w", i, err)
			}
			out = append(out, coeff)
		}
		*c = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode coeffs: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("coeffs must be an array of pairs or an object")
	}
	out := Coeffs{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode coeffs key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("coeffs key is not a string")
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("coeffs %q: bad value: %w", key, err)
		}
		out = append(out, Coeff{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode coeffs: %w", err)
	}
	*c = out
	return nil
}

// TraineeMetadata describes a ruleset as reported by the trainee service.
type TraineeMetadata struct {
	ViewportSize ViewportSize `json:"viewportSize"`
	Coeffs       Coeffs       `json:"coeffs"`
}
