package cache

import "strconv"

const (
	// MaxKeyLen bounds the length of a key built by BudgetKey, in characters.
	MaxKeyLen = 240
	// IdentifierBudget is what an over-long identifier is cut down to.
	IdentifierBudget = 128
)

// BudgetKey builds a bounded cache key from a file identifier, a window of source
// context, the target line's offset within that window, and a finding signature.
//
// The identifier keeps its full length unless it alone exceeds MaxKeyLen, in
// which case it is cut to IdentifierBudget. Whatever budget is left goes 80% to
// the context and 20% to the signature. Every cut keeps a prefix. Inputs that
// agree after truncation produce the same key.
func BudgetKey(identifier, context string, offset int, signature string) string {
	id := []rune(identifier)
	var remaining int
	if len(id) > MaxKeyLen {
		id = id[:IdentifierBudget]
		remaining = MaxKeyLen - IdentifierBudget
	} else {
		remaining = MaxKeyLen - len(id)
	}
	remaining = max(remaining, 0)

	ctx := prefix(context, remaining*8/10)
	sig := prefix(signature, remaining*2/10)

	key := []rune(string(id) + ":" + ctx + ":" + strconv.Itoa(offset) + ":" + sig)
	if len(key) > MaxKeyLen {
		key = key[:MaxKeyLen]
	}
	return string(key)
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
