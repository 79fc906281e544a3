package vault

import (
	"unicode"
	"unicode/utf8"
)

// Strength is a coarse password quality score.
type Strength int

const (
	Weak Strength = iota
	Medium
	Strong
	VeryStrong
	CrazyStrong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	case VeryStrong:
		return "very strong"
	case CrazyStrong:
		return "crazy strong"
	}
	return "unknown"
}

// CheckStrength scores a password by counting which of four traits it has:
// more than six characters, a special character, a digit, and mixed case.
// Only the first special character counts as special; repeated specials
// and digits fall through to the case check, where they count as lower
// case.
func CheckStrength(password string) Strength {
	score := 0
	var sawUpper, sawLower, sawDigit, sawSpecial bool

	if utf8.RuneCountInString(password) > 6 {
		score++
	}

	for _, c := range password {
		switch {
		case !sawSpecial && !unicode.IsLetter(c) && !unicode.IsDigit(c):
			score++
			sawSpecial = true
		case !sawDigit && unicode.IsDigit(c):
			score++
			sawDigit = true
		default:
			if !sawUpper || !sawLower {
				if unicode.IsUpper(c) {
					sawUpper = true
				} else {
					sawLower = true
				}
				if sawUpper && sawLower {
					score++
				}
			}
		}
	}

	if score > int(CrazyStrong) {
		return CrazyStrong
	}
	return Strength(score)
}
