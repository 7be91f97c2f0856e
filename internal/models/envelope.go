// internal/models/envelope.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProductPage is the canonical listing envelope. The listing endpoint
// returns either a bare array or {products, hasMore}; both decode here.
type ProductPage struct {
	Products []RawProduct `json:"products"`
	HasMore  *bool        `json:"hasMore,omitempty"`
}

func (p *ProductPage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = ProductPage{}
		return nil
	}

	dec := func(v interface{}) error {
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		return d.Decode(v)
	}

	switch data[0] {
	case '[':
		var items []RawProduct
		if err := dec(&items); err != nil {
			return err
		}
		*p = ProductPage{Products: items}
		return nil
	case '{':
		type plain ProductPage
		var obj plain
		if err := dec(&obj); err != nil {
			return err
		}
		*p = ProductPage(obj)
		return nil
	default:
		return fmt.Errorf("unexpected listing payload starting with %q", data[0])
	}
}

// CompareMetadata summarizes the offers of one comparison.
type CompareMetadata struct {
	LowestPrice  json.Number `json:"lowestPrice"`
	HighestPrice json.Number `json:"highestPrice"`
	MaxSavings   json.Number `json:"maxSavings"`
	TotalStores  int         `json:"totalStores"`
}

// CompareResponse is the single-product, multi-store payload. Metadata is
// kept raw because it is advisory and must not fail the decode.
type CompareResponse struct {
	Product  *RawProduct     `json:"product"`
	Prices   []RawStoreOffer `json:"prices"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// DecodeMetadata parses the advisory metadata. ok is false when absent or
// malformed.
func (c CompareResponse) DecodeMetadata() (CompareMetadata, bool) {
	var m CompareMetadata
	if len(c.Metadata) == 0 || string(c.Metadata) == "null" {
		return m, false
	}
	if err := json.Unmarshal(c.Metadata, &m); err != nil {
		return CompareMetadata{}, false
	}
	return m, true
}

// DecodeJSON decodes with json.Number so price coercion sees exact text.
func DecodeJSON(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	return d.Decode(v)
}
