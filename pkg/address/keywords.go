package address

import (
	"regexp"
	"strings"
)

var (
	reKeywordSeparators = regexp.MustCompile(`[,，、;；/]+`)
	reAdminUnit         = regexp.MustCompile(`[^縣市區鄉鎮]+?[縣市區鄉鎮]`)
)

// ExtractKeywords splits a free-text location ("新北市樹林區", "Shulin District")
// into substrings that are expected to appear verbatim in clinic addresses.
// CJK locations are cut at administrative units and each keyword is emitted in
// both the 台 and 臺 spellings. The result is deduplicated and keeps input order.
func ExtractKeywords(location string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, part := range reKeywordSeparators.Split(location, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		units := reAdminUnit.FindAllString(strings.ReplaceAll(part, " ", ""), -1)
		if len(units) == 0 {
			units = []string{part}
		}
		for _, unit := range units {
			add(unit)
			add(strings.ReplaceAll(unit, "台", "臺"))
			add(strings.ReplaceAll(unit, "臺", "台"))
		}
	}

	return keywords
}

// KeywordPattern compiles keywords into a single alternation. It returns nil
// when there is nothing to match, which callers treat as "no filter".
func KeywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}
