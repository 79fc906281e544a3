// Package util holds small helpers shared by the crypto and container
// layers: byte hygiene for key material, password normalization, and
// the AES-CBC and bcrypt primitives the vault format is built on.
package util

// CopyBytes returns a copy of src that shares no backing array with it.
// Key material crossing a package boundary is always copied, so wiping
// one side never clears bytes the other side still holds.
func CopyBytes(src []byte) []byte {
	return append([]byte(nil), src...)
}

// WipeBytes zeroes every element of b in place. Best effort: copies the
// runtime made earlier are out of reach.
func WipeBytes(b []byte) {
	clear(b)
}
