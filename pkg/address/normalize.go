// Package address canonicalizes free-text clinic addresses into comparable keys.
package address

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Substitutions are applied in this order; the province form must follow the
// city forms so that 台灣省 collapses to 臺灣.
var regionalReplacements = []struct {
	from string
	to   string
}{
	{"台灣", "臺灣"},
	{"台北", "臺北"},
	{"台中", "臺中"},
	{"臺灣省", "臺灣"},
	{" Road", "路"},
	{" Rd.", "路"},
	{" Street", "街"},
	{" St.", "街"},
	{" Avenue", "大道"},
	{" Ave.", "大道"},
	{" Boulevard", "大道"},
	{" Ln.", "巷"},
}

// DefaultVariantSpan is the building-number spread used for fuzzy lookups.
const DefaultVariantSpan = 3

var (
	rePostalPrefix   = regexp.MustCompile(`^\d{3,5}`)
	reSeparators     = regexp.MustCompile(`[\s,，、]`)
	reBuildingNumber = regexp.MustCompile(`^(.+?[0-9]+號(?:-\d+)?(?:之\d+)?)`)
	reVariantAnchor  = regexp.MustCompile(`^(.*?)(\d+)(號.*)$`)
	dashReplacer     = strings.NewReplacer("－", "-", "–", "-", "—", "-", "‐", "-")
)

// Normalize returns the AddressKey for a raw address: county, district, road
// and building number with floor and room suffixes removed.
func Normalize(addr string) string {
	if addr == "" {
		return ""
	}

	// Folding first lets full-width postal digits match the prefix pattern.
	addr = width.Fold.String(strings.TrimSpace(addr))
	addr = stripPostalPrefix(addr)

	for _, r := range regionalReplacements {
		addr = strings.ReplaceAll(addr, r.from, r.to)
	}

	addr = stripPostalPrefix(reSeparators.ReplaceAllString(addr, ""))
	addr = dashReplacer.Replace(addr)

	if m := reBuildingNumber.FindStringSubmatch(addr); m != nil {
		addr = m[1]
	}

	return strings.TrimSpace(addr)
}

func stripPostalPrefix(addr string) string {
	for {
		stripped := strings.TrimSpace(rePostalPrefix.ReplaceAllString(addr, ""))
		if stripped == addr {
			return addr
		}
		addr = stripped
	}
}

// Variants expands a key into the neighbouring building numbers
// number-span..number+span. Keys without a building number come back as-is.
func Variants(key string, span int) []string {
	m := reVariantAnchor.FindStringSubmatch(key)
	if m == nil {
		return []string{key}
	}
	if span < 0 {
		span = 0
	}

	pre, numStr, post := m[1], m[2], m[3]
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return []string{key}
	}

	variants := make([]string, 0, 2*span+1)
	for n := num - span; n <= num+span; n++ {
		variants = append(variants, fmt.Sprintf("%s%d%s", pre, n, post))
	}
	return variants
}
