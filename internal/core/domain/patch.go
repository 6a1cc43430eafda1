package domain

import (
	"encoding/json"
	"fmt"
)

// BikePatch holds the mutable bike fields present in a partial update.
type BikePatch struct {
	Manufacturer *string
	Type         *string
	ModelYear    *int
	BikeSize     *string
}

// ComponentPatch holds the mutable component fields present in a partial update.
type ComponentPatch struct {
	Manufacturer *string
	Description  *string
	Condition    *string
}

// ParseBikePatch decodes a partial update body. Unknown keys and empty
// bodies are rejected.
func ParseBikePatch(body map[string]json.RawMessage) (*BikePatch, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrBadRequest)
	}
	p := &BikePatch{}
	for key, raw := range body {
		var err error
		switch key {
		case "manufacturer":
			p.Manufacturer, err = decodeField[string](key, raw)
		case "type":
			p.Type, err = decodeField[string](key, raw)
		case "model_year":
			p.ModelYear, err = decodeField[int](key, raw)
		case "bike_size":
			p.BikeSize, err = decodeField[string](key, raw)
		default:
			err = fmt.Errorf("%w: unknown attribute %q", ErrBadRequest, key)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func ParseComponentPatch(body map[string]json.RawMessage) (*ComponentPatch, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrBadRequest)
	}
	p := &ComponentPatch{}
	for key, raw := range body {
		var err error
		switch key {
		case "manufacturer":
			p.Manufacturer, err = decodeField[string](key, raw)
		case "description":
			p.Description, err = decodeField[string](key, raw)
		case "condition":
			p.Condition, err = decodeField[string](key, raw)
		default:
			err = fmt.Errorf("%w: unknown attribute %q", ErrBadRequest, key)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func decodeField[T any](key string, raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: invalid value for %q", ErrBadRequest, key)
	}
	return &v, nil
}

// Apply reports whether the manufacturer changed, since components mirror it.
func (p *BikePatch) Apply(b *Bike) (manufacturerChanged bool) {
	if p.Manufacturer != nil {
		manufacturerChanged = *p.Manufacturer != b.Manufacturer
		b.Manufacturer = *p.Manufacturer
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.ModelYear != nil {
		b.ModelYear = *p.ModelYear
	}
	if p.BikeSize != nil {
		b.BikeSize = *p.BikeSize
	}
	return manufacturerChanged
}

func (p *ComponentPatch) Apply(c *Component) {
	if p.Manufacturer != nil {
		c.Manufacturer = *p.Manufacturer
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Condition != nil {
		c.Condition = *p.Condition
	}
}

var (
	BikeFields      = []string{"manufacturer", "type", "model_year", "bike_size"}
	ComponentFields = []string{"manufacturer", "description", "condition"}
)

// RequireFields checks that body carries exactly the given attributes,
// nothing missing and nothing extra.
func RequireFields(body map[string]json.RawMessage, fields []string) error {
	if len(body) != len(fields) {
		return fmt.Errorf("%w: the request object is missing at least one of the required attributes", ErrBadRequest)
	}
	for _, f := range fields {
		if _, ok := body[f]; !ok {
			return fmt.Errorf("%w: the request object is missing at least one of the required attributes", ErrBadRequest)
		}
	}
	return nil
}
