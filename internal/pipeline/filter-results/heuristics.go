// internal/pipeline/filter-results/heuristics.go
package filterresults

// Keyword heuristics for clothing filters. These infer gender and size from
// free text in the product name. They are approximate and can misclassify
// (for example "guy" counts as men's). Nothing else in the pipeline depends
// on them.

import (
	"strings"

	"pricelens/internal/common/textfold"
)

const (
	GenderAll    = "all"
	GenderMen    = "men"
	GenderWomen  = "women"
	GenderKids   = "kids"
	GenderUnisex = "unisex"
)

var genderKeywords = map[string][]string{
	GenderMen:    {"men", "mens", "man", "male", "guy", "guys", "gentlemen"},
	GenderWomen:  {"women", "womens", "woman", "female", "ladies", "lady"},
	GenderKids:   {"kid", "kids", "boy", "boys", "girl", "girls", "youth", "children", "toddler"},
	GenderUnisex: {"unisex"},
}

var sizeAliases = map[string][]string{
	"xs":  {"xs", "x small", "extra small"},
	"s":   {"s", "small"},
	"m":   {"m", "medium"},
	"l":   {"l", "large"},
	"xl":  {"xl", "x large", "extra large"},
	"xxl": {"xxl", "2xl", "xx large"},
}

// InferGenders returns every gender group whose keywords appear as whole
// words in name. "women" does not match "men".
func InferGenders(name string) map[string]bool {
	words := textfold.Words(name)
	found := make(map[string]bool)
	for gender, keywords := range genderKeywords {
		for _, kw := range keywords {
			if hasWord(words, kw) {
				found[gender] = true
				break
			}
		}
	}
	return found
}

// MatchesGender reports whether name fits the selected gender. Unisex items
// match men and women. An empty or "all" selection matches everything.
func MatchesGender(name, gender string) bool {
	gender = textfold.Fold(gender)
	if gender == "" || gender == GenderAll {
		return true
	}
	found := InferGenders(name)
	if found[gender] {
		return true
	}
	return found[GenderUnisex] && (gender == GenderMen || gender == GenderWomen)
}

// MatchesSize reports whether name mentions the selected size as a whole
// word or phrase, including common aliases such as "medium" for "m".
func MatchesSize(name, size string) bool {
	size = textfold.Fold(size)
	if size == "" || size == "all" {
		return true
	}
	phrase := " " + strings.Join(textfold.Words(name), " ") + " "

	aliases, ok := sizeAliases[size]
	if !ok {
		aliases = []string{strings.Join(textfold.Words(size), " ")}
	}
	for _, alias := range aliases {
		if alias != "" && strings.Contains(phrase, " "+alias+" ") {
			return true
		}
	}
	return false
}

func hasWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}
