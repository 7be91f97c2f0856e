// internal/pipeline/resolve-image/config.go
package resolveimage

type Config struct {
	MinLength            int
	Disallowed           []string
	CategoryPlaceholders map[string]string
	DefaultPlaceholder   string
}

const placeholderBase = "https://cdn.pricelens.app/placeholders/"

func LoadConfig() *Config {
	return &Config{
		MinLength:  10,
		Disallowed: []string{"placeholder", "via.placeholder", "example.com"},
		CategoryPlaceholders: map[string]string{
			"electronics": placeholderBase + "electronics.png",
			"computers":   placeholderBase + "computers.png",
			"phones":      placeholderBase + "phones.png",
			"gaming":      placeholderBase + "gaming.png",
			"appliances":  placeholderBase + "appliances.png",
			"home":        placeholderBase + "home.png",
			"furniture":   placeholderBase + "furniture.png",
			"clothing":    placeholderBase + "clothing.png",
			"shoes":       placeholderBase + "shoes.png",
			"beauty":      placeholderBase + "beauty.png",
			"health":      placeholderBase + "health.png",
			"grocery":     placeholderBase + "grocery.png",
			"toys":        placeholderBase + "toys.png",
			"sports":      placeholderBase + "sports.png",
			"automotive":  placeholderBase + "automotive.png",
			"books":       placeholderBase + "books.png",
			"pets":        placeholderBase + "pets.png",
			"baby":        placeholderBase + "baby.png",
		},
		DefaultPlaceholder: placeholderBase + "default.png",
	}
}
