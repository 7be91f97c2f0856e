package normalizeproviders

import (
	"context"
	"encoding/json"
	"testing"

	"pricelens/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Parser Tests
// ==========================

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name       string
		price      interface{}
		priceRange string
		wantMin    string
		wantMax    string
		wantLevel  int
		display    string
	}{
		{name: "numeric price", price: 120.0, wantMin: "120.00", wantMax: "120.00", display: "$120.00"},
		{name: "string price", price: "$89", wantMin: "89.00", wantMax: "89.00", display: "$89.00"},
		{name: "range", priceRange: "$80 - $150", wantMin: "80.00", wantMax: "150.00", display: "$80.00 - $150.00"},
		{name: "range with to", priceRange: "$80 to $150", wantMin: "80.00", wantMax: "150.00", display: "$80.00 - $150.00"},
		{name: "reversed range", priceRange: "150–80", wantMin: "80.00", wantMax: "150.00", display: "$80.00 - $150.00"},
		{name: "range in price field", price: "$20 - $30", wantMin: "20.00", wantMax: "30.00", display: "$20.00 - $30.00"},
		{name: "open ended", priceRange: "$120+", wantMin: "120.00", display: "$120.00+"},
		{name: "dollar level", priceRange: "$$$", wantLevel: 3, display: "$$$"},
		{name: "explicit price wins over range", price: json.Number("99"), priceRange: "$$", wantMin: "99.00", wantMax: "99.00", display: "$99.00"},
		{name: "garbage", priceRange: "call for pricing"},
		{name: "nothing"},
		{name: "zero price falls to range", price: 0, priceRange: "$", wantLevel: 1, display: "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParsePrice(tt.price, tt.priceRange)
			if tt.wantMin == "" {
				assert.Nil(t, info.Min)
			} else {
				require.NotNil(t, info.Min)
				assert.Equal(t, tt.wantMin, info.Min.StringFixed(2))
			}
			if tt.wantMax == "" {
				assert.Nil(t, info.Max)
			} else {
				require.NotNil(t, info.Max)
				assert.Equal(t, tt.wantMax, info.Max.StringFixed(2))
			}
			assert.Equal(t, tt.wantLevel, info.Level)
			assert.Equal(t, tt.display, info.Display)
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{4.56, 4.6, true},
		{7.0, 5, true},
		{-1.0, 0, true},
		{"3.9", 3.9, true},
		{"4.5/5", 4.5, true},
		{json.Number("2"), 2, true},
		{3, 3, true},
		{"great", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{2.3, 2.3, true},
		{"2.3 mi", 2.3, true},
		{"1 Miles", 1, true},
		{"800 m", 0.5, true},
		{"10km", 6.21, true},
		{"2640 ft", 0.5, true},
		{json.Number("4"), 4, true},
		{"near", 0, false},
		{"3 parsecs", 0, false},
		{-2.0, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDistance(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "9am-5pm", FormatHours(" 9am-5pm "))
	assert.Equal(t, "Mon 9-5; Tue 9-5", FormatHours([]interface{}{"Mon 9-5", "", 3, "Tue 9-5"}))
	assert.Equal(t, "", FormatHours(map[string]interface{}{"mon": "9-5"}))
}

// ==========================
// Handler Tests
// ==========================

func decodeProviders(t *testing.T, body string) []RawProvider {
	t.Helper()
	var out []RawProvider
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestHandler_Execute(t *testing.T) {
	raw := decodeProviders(t, `[
		{"id": 1, "name": "Blue Spa", "category": "spa", "rating": 4.8, "priceRange": "$$$", "distance": "2.3 mi", "image": "https://cdn.spa.io/blue.jpg"},
		{"id": "2", "name": "Budget Inn", "serviceType": "hotel", "rating": "3.1", "price": "$89", "distance": "800 m"},
		{"name": "  ", "rating": 5},
		{"id": 4, "name": "Grand Hotel", "category": "hotel", "rating": 9, "priceRange": "$180 - $320", "hours": ["24h"], "website": "https://grand.example.org"},
		{"id": 5, "name": "Mystery Gas", "category": "gas"}
	]`)

	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, out *Output)
	}{
		{
			name:  "sort by distance",
			input: &Input{Providers: raw, SortBy: SortByDistance},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, 1, out.Dropped)
				require.Len(t, out.Providers, 4)
				assert.Equal(t, []string{"Budget Inn", "Blue Spa", "Grand Hotel", "Mystery Gas"}, names(out.Providers))
				assert.Equal(t, "hotel", out.Providers[0].Category)
			},
		},
		{
			name:  "sort by rating with clamp",
			input: &Input{Providers: raw, SortBy: SortByRating},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, []string{"Grand Hotel", "Blue Spa", "Budget Inn", "Mystery Gas"}, names(out.Providers))
				assert.Equal(t, 5.0, *out.Providers[0].Rating)
				assert.Equal(t, "24h", out.Providers[0].Hours)
				require.NotNil(t, out.Providers[0].Website)
			},
		},
		{
			name:  "sort by price",
			input: &Input{Providers: raw, SortBy: SortByPrice},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, []string{"Budget Inn", "Blue Spa", "Grand Hotel", "Mystery Gas"}, names(out.Providers))
			},
		},
		{
			name: "min rating and max price",
			input: &Input{
				Providers: raw,
				MinRating: floatPtr(3.5),
				MaxPrice:  floatPtr(150),
			},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, []string{"Blue Spa"}, names(out.Providers))
				assert.Equal(t, "https://cdn.spa.io/blue.jpg", out.Providers[0].ImageURL)
				assert.Equal(t, 3, out.Providers[0].PriceLevel)
			},
		},
		{
			name:  "unsorted keeps input order",
			input: &Input{Providers: raw},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, []string{"Blue Spa", "Budget Inn", "Grand Hotel", "Mystery Gas"}, names(out.Providers))
				assert.Equal(t, "https://cdn.pricelens.app/placeholders/default.png", out.Providers[3].ImageURL)
			},
		},
	}

	h := NewHandler(logger.NewTestLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	h := NewHandler(logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)

	_, err = h.Execute(context.Background(), &Input{SortBy: "popularity"})
	assert.ErrorIs(t, err, ErrUnknownSort)
}

func names(ps []NormalizedProvider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }
