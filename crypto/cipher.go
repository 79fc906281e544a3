package crypto

import (
	"errors"

	"github.com/tmarsden/strongbox/internal/util"
)

// ErrCipherDestroyed is returned when a CipherInfo is used after Destroy.
var ErrCipherDestroyed = errors.New("cipher destroyed")

// CipherInfo bundles the AES-256-CBC cipher pair derived from one password
// with the salt and rounds that produced its key. The zero IV is part of the
// container format; see the notes on util.EncryptAESCBC.
type CipherInfo struct {
	key       []byte
	salt      []byte
	rounds    int
	destroyed bool
}

// NewCipherInfo copies rawKey and salt into a CipherInfo. The caller keeps
// ownership of its own buffers and may wipe them afterwards.
func NewCipherInfo(rawKey, salt []byte, rounds int) *CipherInfo {
	return &CipherInfo{
		key:    util.CopyBytes(rawKey),
		salt:   util.CopyBytes(salt),
		rounds: rounds,
	}
}

// NewCipherInfoPBE builds the cipher pair for the obsolete first-generation
// format, which carried no salt or rounds in the file.
func NewCipherInfoPBE(password string) *CipherInfo {
	key := DeriveKeyPBE(password)
	defer util.WipeBytes(key)
	return NewCipherInfo(key, nil, 0)
}

func (ci *CipherInfo) Encrypt(plainText []byte) ([]byte, error) {
	if ci.destroyed {
		return nil, ErrCipherDestroyed
	}
	return util.EncryptAESCBC(plainText, ci.key)
}

func (ci *CipherInfo) Decrypt(cipherText []byte) ([]byte, error) {
	if ci.destroyed {
		return nil, ErrCipherDestroyed
	}
	return util.DecryptAESCBC(cipherText, ci.key)
}

// Salt returns a copy of the key derivation salt, empty for the PBE pair.
func (ci *CipherInfo) Salt() []byte {
	return util.CopyBytes(ci.salt)
}

// Rounds returns the log2 work factor the key was derived with, 0 for the
// PBE pair.
func (ci *CipherInfo) Rounds() int {
	return ci.rounds
}

// Destroy wipes the key material. The CipherInfo is unusable afterwards.
func (ci *CipherInfo) Destroy() {
	util.WipeBytes(ci.key)
	ci.key = nil
	ci.destroyed = true
}
