package exposition

import "strings"

// Matcher selects series by their labels.
type Matcher func(Labels) bool

// LabelEquals matches series whose label has exactly the given value.
func LabelEquals(label, value string) Matcher {
	return func(l Labels) bool {
		return l[label] == value
	}
}

// ExcludePrefixes rejects series whose label value starts with any prefix.
// Series without the label are kept.
func ExcludePrefixes(label string, prefixes ...string) Matcher {
	return func(l Labels) bool {
		v, ok := l[label]
		if !ok {
			return true
		}
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(v, p) {
				return false
			}
		}
		return true
	}
}

// And matches series accepted by every matcher.
func And(ms ...Matcher) Matcher {
	return func(l Labels) bool {
		for _, m := range ms {
			if m != nil && !m(l) {
				return false
			}
		}
		return true
	}
}

// Document is the parsed, name-indexed content of one payload.
type Document struct {
	series map[string][]Series

	// Skipped is the number of candidate lines that could not be parsed.
	Skipped int
}

// Has reports whether at least one series of the metric was parsed.
func (d *Document) Has(name string) bool {
	return len(d.series[name]) > 0
}

// Series returns the parsed series of a metric in payload order.
func (d *Document) Series(name string) []Series {
	return d.series[name]
}

// Scalar returns the value of a metric expected to appear once. A missing
// metric yields zero.
func (d *Document) Scalar(name string) float64 {
	s := d.Series(name)
	if len(s) == 0 {
		return 0
	}
	return s[0].Value
}

// Sum adds up every series of the metric accepted by match. A nil match
// accepts everything; a missing metric yields zero.
func (d *Document) Sum(name string, match Matcher) float64 {
	var total float64
	for _, s := range d.Series(name) {
		if match == nil || match(s.Labels) {
			total += s.Value
		}
	}
	return total
}

// Distinct counts the distinct values of label among matching series.
func (d *Document) Distinct(name, label string, match Matcher) int {
	seen := make(map[string]struct{})
	for _, s := range d.Series(name) {
		if match != nil && !match(s.Labels) {
			continue
		}
		if v, ok := s.Labels[label]; ok {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
