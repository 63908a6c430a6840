package evaluation

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func topK(items []string, k int) []string {
	if k < len(items) {
		return items[:k]
	}
	return items
}

// RecallAtK is the fraction of expected tags found in the first k returned.
// Repeated tags count once. Returns 0.0 if expected is empty.
func RecallAtK(expected, returned []string, k int) float64 {
	want := toSet(expected)
	if len(want) == 0 {
		return 0.0
	}

	found := make(map[string]struct{}, len(want))
	for _, tag := range topK(returned, k) {
		if _, ok := want[tag]; ok {
			found[tag] = struct{}{}
		}
	}

	return float64(len(found)) / float64(len(want))
}

// MRRAtK is the reciprocal rank of the first expected tag within the first k
// returned, or 0.0 when none appears.
func MRRAtK(expected, returned []string, k int) float64 {
	want := toSet(expected)
	if len(want) == 0 {
		return 0.0
	}

	for i, tag := range topK(returned, k) {
		if _, ok := want[tag]; ok {
			return 1.0 / float64(i+1)
		}
	}

	return 0.0
}
