// Package diff computes a line diff between two in-memory texts and renders
// it as normal-diff range headers such as "26,27c26", "12,13d13" or "7a8,9".
package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Hunk is one contiguous block of differing lines. Ranges are 1-based and
// inclusive; an empty range (pure add or delete) records the line after
// which the change applies.
type Hunk struct {
	Op       byte // 'a', 'c' or 'd'
	OldStart int
	OldEnd   int
	NewStart int
	NewEnd   int
}

// Header renders the hunk in normal-diff form.
func (h Hunk) Header() string {
	return formatRange(h.OldStart, h.OldEnd) + string(h.Op) + formatRange(h.NewStart, h.NewEnd)
}

func formatRange(start, end int) string {
	if end <= start {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, end)
}

// Compute returns the hunks that turn original into changed. Identical texts
// yield no hunks.
func Compute(original, changed string) []Hunk {
	if original == changed {
		return nil
	}
	a := difflib.SplitLines(original)
	b := difflib.SplitLines(changed)

	var hunks []Hunk
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			hunks = append(hunks, Hunk{Op: 'c', OldStart: op.I1 + 1, OldEnd: op.I2, NewStart: op.J1 + 1, NewEnd: op.J2})
		case 'd':
			hunks = append(hunks, Hunk{Op: 'd', OldStart: op.I1 + 1, OldEnd: op.I2, NewStart: op.J1, NewEnd: op.J1})
		case 'i':
			hunks = append(hunks, Hunk{Op: 'a', OldStart: op.I1, OldEnd: op.I1, NewStart: op.J1 + 1, NewEnd: op.J2})
		}
	}
	return hunks
}

// headerPattern matches a normal-diff range header.
var headerPattern = regexp.MustCompile(`^(\d+)(?:,(\d+))?([acd])(\d+)(?:,(\d+))?$`)

// ParseHeader returns every line number in a range header, in order. Lines
// that are not range headers yield nil.
func ParseHeader(header string) []int {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return nil
	}
	var nums []int
	for _, g := range []string{m[1], m[2], m[4], m[5]} {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

// AffectedLines parses each header and concatenates the numbers.
func AffectedLines(headers []string) []int {
	var out []int
	for _, h := range headers {
		out = append(out, ParseHeader(h)...)
	}
	return out
}
