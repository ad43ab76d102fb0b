// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders finished reflexion runs: Markdown answers with
// their references, numeric citation checks, YAML transcripts, and the
// run records archived by the history store.
package report

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// citationPattern matches numeric citations such as [1], [2, 3], [1; 4],
// and ranges like [2-4].
var citationPattern = regexp.MustCompile(`\[(\d+(?:\s*[,;-]\s*\d+)*)\]`)

// referencePrefix matches an explicit number at the start of a reference
// entry (e.g. "[3] https://example.com").
var referencePrefix = regexp.MustCompile(`^\s*\[(\d+)\]`)

// maxRange bounds how many numbers a single range citation may expand to.
const maxRange = 50

// CitationCheck summarizes how an answer's citations line up with its
// reference list.
type CitationCheck struct {
	// Cited lists the distinct citation numbers used in the answer, ascending.
	Cited []int `json:"cited" yaml:"cited"`

	// Missing lists cited numbers with no reference entry.
	Missing []int `json:"missing" yaml:"missing"`

	// Unused lists reference numbers never cited in the answer.
	Unused []int `json:"unused" yaml:"unused"`
}

// OK reports whether every citation resolves to a reference.
func (c CitationCheck) OK() bool { return len(c.Missing) == 0 }

// ValidateCitations checks the numeric citations of a revision against
// its references. References[i] is reference i+1 unless the entry starts
// with an explicit "[n]".
func ValidateCitations(rev types.Revision) CitationCheck {
	known := ReferenceNumbers(rev.References)
	cited := CitedNumbers(rev.Answer)

	check := CitationCheck{Cited: cited, Missing: []int{}, Unused: []int{}}
	citedSet := make(map[int]bool, len(cited))
	for _, n := range cited {
		citedSet[n] = true
		if !known[n] {
			check.Missing = append(check.Missing, n)
		}
	}
	for n := range known {
		if !citedSet[n] {
			check.Unused = append(check.Unused, n)
		}
	}
	sort.Ints(check.Unused)
	return check
}

// CitedNumbers returns the distinct citation numbers in text, ascending.
func CitedNumbers(text string) []int {
	seen := make(map[int]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		for _, n := range expandCitation(m[1]) {
			seen[n] = true
		}
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// ReferenceNumbers returns the set of citation numbers that refs defines.
func ReferenceNumbers(refs []string) map[int]bool {
	known := make(map[int]bool, len(refs))
	for i, ref := range refs {
		if m := referencePrefix.FindStringSubmatch(ref); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				known[n] = true
				continue
			}
		}
		known[i+1] = true
	}
	return known
}

// expandCitation turns the inside of one bracket ("1, 3-5") into numbers.
func expandCitation(inner string) []int {
	var nums []int
	for _, part := range strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		lo, hi, isRange := splitRange(part)
		if !isRange {
			if n, err := strconv.Atoi(part); err == nil && n > 0 {
				nums = append(nums, n)
			}
			continue
		}
		if lo <= 0 || hi < lo || hi-lo >= maxRange {
			continue
		}
		for n := lo; n <= hi; n++ {
			nums = append(nums, n)
		}
	}
	return nums
}

func splitRange(s string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	lo, errA := strconv.Atoi(strings.TrimSpace(a))
	hi, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
