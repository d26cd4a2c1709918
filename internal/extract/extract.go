// Package extract turns AcousticBrainz-shaped high/low-level descriptor
// responses and Last.fm-shaped top-tag responses into flat numeric/text
// features. It is pure: no I/O, no store, no HTTP, so the exact numeric
// semantics can be pinned down with plain unit tests.
package extract

import (
	"strconv"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
)

// SanitizeKey replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeKey(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// JoinName sanitizes each segment independently, then joins with '.', so
// literal dots stay visible in names like "lastfm.toptags.chill.count"
// instead of being escaped to underscores.
func JoinName(segments ...string) string {
	joined := ""
	for i, seg := range segments {
		if i > 0 {
			joined += "."
		}
		joined += SanitizeKey(seg)
	}
	return joined
}

func arrayIndex(i int) string {
	if i < 0 {
		i = 0
	}
	if i > 99 {
		return strconv.Itoa(i)
	}
	if i < 10 {
		return "0" + strconv.Itoa(i)
	}
	return strconv.Itoa(i)
}

// flatten walks v, recursing through objects and arrays, and appends a
// NumFeature for every number/bool leaf. When collectText is true, a string
// leaf under a "value" key also becomes a TextFeature (the high-level shape
// AcousticBrainz uses for its chosen-class labels).
func flatten(path []string, v any, collectText bool, nums *[]domain.NumFeature, texts *[]domain.TextFeature) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(append(append([]string{}, path...), k), child, collectText, nums, texts)
		}
	case []any:
		for i, child := range val {
			flatten(append(append([]string{}, path...), arrayIndex(i)), child, collectText, nums, texts)
		}
	case float64:
		*nums = append(*nums, domain.NumFeature{Name: JoinName(path...), Value: val})
	case bool:
		v := 0.0
		if val {
			v = 1.0
		}
		*nums = append(*nums, domain.NumFeature{Name: JoinName(path...), Value: v})
	case string:
		if collectText && len(path) > 0 && path[len(path)-1] == "value" {
			*texts = append(*texts, domain.TextFeature{Name: JoinName(path...), Value: val})
		}
	default:
		// null or unrecognized leaf: not a defined scalar rule, skip.
	}
}

// ExtractHighLevel extracts numeric and text features from the "highlevel"
// root of an AcousticBrainz-shaped response. Absence of the root yields
// empty slices, never an error.
func ExtractHighLevel(resp map[string]any) ([]domain.NumFeature, []domain.TextFeature) {
	root, ok := resp["highlevel"].(map[string]any)
	if !ok {
		return nil, nil
	}
	var nums []domain.NumFeature
	var texts []domain.TextFeature
	for k, v := range root {
		flatten([]string{"ab", "highlevel", k}, v, true, &nums, &texts)
	}
	return nums, texts
}

// ExtractLowLevel extracts numeric-only features from the "lowlevel" root.
func ExtractLowLevel(resp map[string]any) []domain.NumFeature {
	root, ok := resp["lowlevel"].(map[string]any)
	if !ok {
		return nil
	}
	var nums []domain.NumFeature
	var texts []domain.TextFeature // discarded: low-level never yields text
	for k, v := range root {
		flatten([]string{"ab", "lowlevel", k}, v, false, &nums, &texts)
	}
	return nums
}

// ExtractTopTags reads toptags.tag[*] from a Last.fm-shaped response,
// recording "lastfm.toptags.<name>.count" per tag, and — when the total
// count across tags is positive — a parallel "...p" series normalized to
// sum to 1.
func ExtractTopTags(resp map[string]any) []domain.NumFeature {
	root, ok := resp["toptags"].(map[string]any)
	if !ok {
		return nil
	}
	tags := asTagSlice(root["tag"])
	if len(tags) == 0 {
		return nil
	}

	type counted struct {
		name  string
		count float64
	}
	var parsed []counted
	var sum float64
	for _, tag := range tags {
		m, ok := tag.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		count := parseCount(m["count"])
		parsed = append(parsed, counted{name: name, count: count})
		sum += count
	}

	var nums []domain.NumFeature
	for _, p := range parsed {
		nums = append(nums, domain.NumFeature{Name: JoinName("lastfm", "toptags", p.name, "count"), Value: p.count})
	}
	if sum > 0 {
		for _, p := range parsed {
			nums = append(nums, domain.NumFeature{Name: JoinName("lastfm", "toptags", p.name, "p"), Value: p.count / sum})
		}
	}
	return nums
}

// asTagSlice normalizes Last.fm's quirk of returning a bare object instead
// of a single-element array when there is exactly one tag.
func asTagSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		return []any{t}
	default:
		return nil
	}
}

func parseCount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
