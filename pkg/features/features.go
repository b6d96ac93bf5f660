// Package features computes the heuristic compatibility features between a
// source field and a candidate target attribute. The extractor is pure and
// stateless: the same inputs always produce the same vector, and the
// feature order is a contract shared by training and inference.
package features

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/clinforge/fieldmap/pkg/edc"
)

// Dim is the feature vector length.
const Dim = 7

var (
	tokenSplit = regexp.MustCompile(`[\W_]+`)
	decimalRe  = regexp.MustCompile(`^\d+[.,]\d+$`)
	alphaRe    = regexp.MustCompile(`[A-Za-z]+`)
)

// tokens splits s on non-word characters and lower-cases the parts.
func tokens(s string) []string {
	var out []string
	for _, t := range tokenSplit.Split(s, -1) {
		if t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

// NormalizedEditDistance is the case-folded Levenshtein distance between a
// and b divided by the longer length. Two empty strings are distance 0.
func NormalizedEditDistance(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a)+len(b) == 0 {
		return 0.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest < 1 {
		longest = 1
	}
	return float64(levenshtein.Distance(a, b, nil)) / float64(longest)
}

// Stats summarizes the null-rate and cardinality of a sample set.
type Stats struct {
	Total      int
	NonNull    int
	Unique     int
	NullFrac   float64
	UniqueFrac float64
}

// SampleStats computes null-rate and cardinality statistics over values.
func SampleStats(values []string) Stats {
	st := Stats{Total: len(values)}
	unique := make(map[string]struct{})
	for _, v := range values {
		if isNull(v) {
			continue
		}
		st.NonNull++
		unique[strings.TrimSpace(v)] = struct{}{}
	}
	st.Unique = len(unique)

	if st.Total > 0 {
		st.NullFrac = 1.0 - float64(st.NonNull)/float64(st.Total)
	} else {
		st.NullFrac = 1.0
	}
	if st.NonNull > 0 {
		st.UniqueFrac = float64(st.Unique) / float64(st.NonNull)
	}
	return st
}

// SampleMatchRate is the fraction of sample values containing any
// lower-cased token of the target name.
func SampleMatchRate(values []string, targetName string) float64 {
	if len(values) == 0 {
		return 0.0
	}
	tks := tokens(targetName)
	if len(tks) == 0 {
		return 0.0
	}

	hits := 0
	for _, v := range values {
		s := strings.ToLower(v)
		for _, t := range tks {
			if strings.Contains(s, t) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(values))
}

// patternTopK caps how many distinct pattern tags represent a sample set.
const patternTopK = 3

// ValuePatterns abstracts each sample value into a pattern tag (<EMPTY>,
// <DATE>, <DIGITS:n>, <DECIMAL>, <ALPHA>, <OTHER>) and returns the most
// common tags, ties broken by first appearance.
func ValuePatterns(values []string) []string {
	counts := make(map[string]int)
	var order []string
	bump := func(tag string) {
		if counts[tag] == 0 {
			order = append(order, tag)
		}
		counts[tag]++
	}

	for _, v := range values {
		s := strings.TrimSpace(v)
		switch {
		case s == "":
			bump("<EMPTY>")
		case parseableDate(s):
			bump("<DATE>")
		case isDigits(s):
			bump("<DIGITS:" + itoa(len(s)) + ">")
		case decimalRe.MatchString(s):
			bump("<DECIMAL>")
		case alphaRe.MatchString(s):
			bump("<ALPHA>")
		default:
			bump("<OTHER>")
		}
	}

	firstSeen := make(map[string]int, len(order))
	for i, tag := range order {
		firstSeen[tag] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > patternTopK {
		order = order[:patternTopK]
	}
	return order
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Vector computes the ordered 7-feature compatibility vector for a source
// field's items against a candidate target:
//
//	0: retrieval cosine similarity, as supplied
//	1: normalized edit distance between joined item identifiers and the target name
//	2: 1 when the inferred source and target dtypes match, else 0
//	3: cardinality similarity, 1 - |unique fraction - 0.5|
//	4: null-rate similarity, 1 - |null fraction|
//	5: fraction of samples containing any target-name token
//	6: overlap between observed pattern tags and target-name tokens
func Vector(items []edc.Item, targetName string, cosine float64) []float64 {
	oids := make([]string, len(items))
	values := make([]string, len(items))
	for i, it := range items {
		oids[i] = it.ItemOID
		values[i] = it.Value
	}
	joinedOIDs := strings.Join(oids, " ")

	lev := NormalizedEditDistance(joinedOIDs, targetName)

	sameDType := 0.0
	if InferSourceDType(values) == InferTargetDType(targetName) {
		sameDType = 1.0
	}

	st := SampleStats(values)
	cardSim := 1.0 - abs(st.UniqueFrac-0.5)
	nullSim := 1.0 - abs(st.NullFrac-0.0)

	matchRate := SampleMatchRate(values, targetName)

	patterns := ValuePatterns(values)
	patternSet := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		patternSet[strings.ToLower(p)] = struct{}{}
	}
	overlap := 0
	for _, t := range tokens(targetName) {
		if _, ok := patternSet[t]; ok {
			overlap++
		}
	}
	denom := len(patterns)
	if denom < 1 {
		denom = 1
	}
	patternSim := float64(overlap) / float64(denom)

	return []float64{cosine, lev, sameDType, cardSim, nullSim, matchRate, patternSim}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
