package util

import "golang.org/x/text/unicode/norm"

// Normalize applies Unicode NFKD to s. Passwords are normalized before
// key derivation so composed and decomposed spellings of the same text
// unlock the same vault, whichever form the input method produced.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
