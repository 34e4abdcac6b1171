package update

// Metrics scores updated locators against hand-parsed truth.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Updated   int     `json:"updated"`
}

// PrecisionRecall compares updated locators with truth. Precision is the
// share of updated tags that truth knows; recall is the share of truth tags
// seen at least threshold times that are either initial or correctly
// updated. It reports false when nothing was updated.
func PrecisionRecall(truth map[string]int, updated, initial map[string]bool, threshold int) (Metrics, bool) {
	if len(updated) == 0 {
		return Metrics{}, false
	}
	m := Metrics{Updated: len(updated)}

	tp := make(map[string]bool)
	for tag := range updated {
		if _, ok := truth[tag]; ok {
			tp[tag] = true
		}
	}
	m.Precision = float64(len(tp)) / float64(len(updated))

	possible, found := 0, 0
	for tag, n := range truth {
		if n < threshold {
			continue
		}
		possible++
		if initial[tag] || tp[tag] {
			found++
		}
	}
	if possible > 0 {
		m.Recall = float64(found) / float64(possible)
	}
	return m, true
}
