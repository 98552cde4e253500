// Package natsort implements natural-order string comparison: runs of
// digits compare by numeric value rather than lexicographically, so
// "nginx2" sorts before "nginx10". Used for hook/notify directory
// listings and unit-name output ordering (spec.md §5).
package natsort

import "sort"

// Less reports whether a sorts before b in natural order.
func Less(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			na, ni := scanNumber(a, i)
			nb, nj := scanNumber(b, j)
			if na != nb {
				return na < nb
			}
			i, j = ni, nj
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func scanNumber(s string, i int) (value int64, next int) {
	for i < len(s) && isDigit(s[i]) {
		value = value*10 + int64(s[i]-'0')
		i++
	}
	return value, i
}

// Strings sorts a slice of strings in place using natural order.
func Strings(s []string) {
	sort.Slice(s, func(i, j int) bool { return Less(s[i], s[j]) })
}
