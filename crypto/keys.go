// Package crypto derives vault keys and builds the cipher pair used by the
// container codec. Key derivation is the bcrypt (eksblowfish) key schedule;
// the work factor is chosen per device by DetermineBestRounds.
package crypto

import (
	"crypto/sha256"
	"fmt"
	"math"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/tmarsden/strongbox/internal/util"
)

const (
	// SaltSize is the length in bytes of a key derivation salt.
	SaltSize = util.BcryptSaltSize

	// MinRounds and MaxRounds bound the log2 work factor.
	MinRounds = util.BcryptMinRounds
	MaxRounds = util.BcryptMaxRounds

	// targetMillis is the derivation time DetermineBestRounds aims for.
	targetMillis = 900
)

// pbeSalt and pbeIterations are fixed by the obsolete first-generation
// format, which stored no parameters in the file.
var pbeSalt = []byte{0xA4, 0x0B, 0xC8, 0x34, 0xD6, 0x95, 0xF3, 0x13}

const pbeIterations = 100

// NewSalt returns a fresh random key derivation salt.
func NewSalt() ([]byte, error) {
	salt, err := util.RandomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives the AES key for the current generation. The password is
// NFKD normalized and gets the standard bcrypt trailing NUL before entering
// the key schedule.
func DeriveKey(password string, salt []byte, rounds int) ([]byte, error) {
	plain := append([]byte(util.Normalize(password)), 0)
	defer util.WipeBytes(plain)

	key, err := util.BcryptRaw(plain, salt, rounds)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}

// DeriveKeyWithoutNul derives the AES key the way releases before the
// trailing-NUL fix did. Decrypt-only; new containers never use it. An empty
// password is an error here because the schedule rejects an empty input,
// which those releases never guarded against either.
func DeriveKeyWithoutNul(password string, salt []byte, rounds int) ([]byte, error) {
	plain := []byte(util.Normalize(password))
	defer util.WipeBytes(plain)

	key, err := util.BcryptRaw(plain, salt, rounds)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}

// DeriveKeyPBE derives the AES key for the obsolete first-generation format:
// PBKDF2-SHA256 with a fixed salt and iteration count. Decrypt-only.
func DeriveKeyPBE(password string) []byte {
	plain := []byte(util.Normalize(password))
	defer util.WipeBytes(plain)

	return pbkdf2.Key(plain, pbeSalt, pbeIterations, util.AESKeySize, sha256.New)
}

// DetermineBestRounds times the key schedule on this device and picks the
// largest work factor expected to stay under about 900ms. Each doubling of
// rounds doubles the time, so two timed runs at the minimum cost are enough
// to extrapolate.
func DetermineBestRounds() (int, error) {
	password := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	run := func() (float64, error) {
		salt, err := util.RandomBytes(SaltSize)
		if err != nil {
			return 0, fmt.Errorf("generating calibration salt: %w", err)
		}
		start := time.Now()
		if _, err := util.BcryptRaw(password, salt, MinRounds); err != nil {
			return 0, fmt.Errorf("calibration run: %w", err)
		}
		return float64(time.Since(start)) / float64(time.Millisecond), nil
	}

	t1, err := run()
	if err != nil {
		return 0, err
	}
	t2, err := run()
	if err != nil {
		return 0, err
	}

	t4 := (t1 + t2) / 2
	if t4 < 0.01 {
		// A clock too coarse to see the minimum cost would otherwise send
		// the extrapolation to infinity.
		t4 = 0.01
	}

	rounds := int(math.Floor(float64(MinRounds) + (math.Log(targetMillis)-math.Log(t4))/math.Ln2))
	if rounds < MinRounds {
		rounds = MinRounds
	}
	if rounds > MaxRounds {
		rounds = MaxRounds
	}
	return rounds, nil
}
