package util

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

const (
	BcryptSaltSize  = 16
	BcryptMinRounds = 4
	BcryptMaxRounds = 31
)

// magicWords is the plaintext block the expensive key schedule encrypts.
// It differs from standard bcrypt's "OrpheanBeholderScryDoubt" so that the
// output is a full 32 bytes; the values are fixed by the container format.
var magicWords = [8]uint32{
	0x155cbf8e, 0x57f57513, 0x3da787b9, 0x71679d82,
	0x7cf72e93, 0x1ae25274, 0x64b54adc, 0x335cbd0b,
}

// BcryptRaw derives a 32-byte key from password and salt using the bcrypt
// (eksblowfish) key schedule at the given cost. The password is used exactly
// as passed; callers wanting the standard trailing NUL must append it
// themselves.
func BcryptRaw(password, salt []byte, rounds int) ([]byte, error) {
	if rounds < BcryptMinRounds || rounds > BcryptMaxRounds {
		return nil, fmt.Errorf("bad number of rounds: %d", rounds)
	}
	if len(salt) != BcryptSaltSize {
		return nil, fmt.Errorf("bad salt length: got %d, want %d", len(salt), BcryptSaltSize)
	}

	c, err := blowfish.NewSaltedCipher(password, salt)
	if err != nil {
		return nil, fmt.Errorf("initializing key schedule: %w", err)
	}
	n := uint64(1) << uint(rounds)
	for i := uint64(0); i < n; i++ {
		blowfish.ExpandKey(password, c)
		blowfish.ExpandKey(salt, c)
	}

	out := make([]byte, len(magicWords)*4)
	for i, w := range magicWords {
		binary.BigEndian.PutUint32(out[i*4:], w)
	}
	for i := 0; i < len(out); i += blowfish.BlockSize {
		for j := 0; j < 64; j++ {
			c.Encrypt(out[i:i+blowfish.BlockSize], out[i:i+blowfish.BlockSize])
		}
	}
	return out, nil
}
