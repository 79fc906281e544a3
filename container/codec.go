// Package container reads and writes the encrypted file that holds all
// secrets. The on-disk layout is fixed: a four byte signature, the salt
// length, the salt, the derivation rounds, then the encrypted payload.
// Four generations of the format exist; Encode always writes the newest,
// Decode walks them newest to oldest until one opens.
package container

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmarsden/strongbox/crypto"
	"github.com/tmarsden/strongbox/internal/util"
	"github.com/tmarsden/strongbox/vault"
)

// signature marks a container that carries salt and rounds in its header.
// The first generation of the format had no header at all.
var signature = []byte{0x22, 0x34, 0x56, 0x79}

// ErrInvalidPassword is returned when no generation of the format can open
// the container with the given password. A corrupt file and a wrong
// password are indistinguishable here.
var ErrInvalidPassword = errors.New("invalid password")

// Format identifies which generation of the container format was read.
type Format int

const (
	FormatUnknown Format = iota

	// FormatJSON is the current generation: headered, current cipher,
	// JSON payload.
	FormatJSON

	// FormatGob is headered with the current cipher but carries the old
	// serialized-stream payload.
	FormatGob

	// FormatGobWithoutNul is FormatGob written before the key schedule
	// gained the standard trailing NUL.
	FormatGobWithoutNul

	// FormatPBE is the original format: no header, fixed-salt PBE cipher,
	// serialized-stream payload.
	FormatPBE
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatGob:
		return "gob"
	case FormatGobWithoutNul:
		return "gob-no-nul"
	case FormatPBE:
		return "pbe"
	}
	return "unknown"
}

// Current reports whether the format is the one Encode writes. A container
// read in any other format should be re-saved.
func (f Format) Current() bool {
	return f == FormatJSON
}

type payload struct {
	Secrets []*vault.Secret `json:"secrets"`
}

// MarshalSecrets renders secrets as the JSON payload document. The same
// document is the container plaintext and the sync payload.
func MarshalSecrets(secrets []*vault.Secret) ([]byte, error) {
	if secrets == nil {
		secrets = []*vault.Secret{}
	}
	data, err := json.Marshal(payload{Secrets: secrets})
	if err != nil {
		return nil, fmt.Errorf("marshaling secrets: %w", err)
	}
	return data, nil
}

// UnmarshalSecrets parses the JSON payload document. The secrets key is
// required so that a successfully decrypted but foreign document is not
// mistaken for an empty vault.
func UnmarshalSecrets(data []byte) ([]*vault.Secret, error) {
	var p struct {
		Secrets *[]*vault.Secret `json:"secrets"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing secrets payload: %w", err)
	}
	if p.Secrets == nil {
		return nil, errors.New("secrets payload missing secrets list")
	}
	return *p.Secrets, nil
}

// ParseParams extracts the salt and rounds from a container header. A
// missing signature, a truncated header or an out-of-range rounds value
// all return (nil, 0): the caller then falls back to the headerless first
// generation instead of failing.
func ParseParams(data []byte) ([]byte, int) {
	if len(data) < len(signature)+2 {
		return nil, 0
	}
	if !bytes.Equal(data[:len(signature)], signature) {
		return nil, 0
	}
	n := int(data[len(signature)])
	if len(data) < len(signature)+1+n+1 {
		return nil, 0
	}
	salt := util.CopyBytes(data[len(signature)+1 : len(signature)+1+n])
	rounds := int(data[len(signature)+1+n])
	if rounds < crypto.MinRounds || rounds > crypto.MaxRounds {
		return nil, 0
	}
	return salt, rounds
}

// Encode writes the current generation of the container: header plus the
// encrypted JSON payload.
func Encode(secrets []*vault.Secret, ci *crypto.CipherInfo) ([]byte, error) {
	salt := ci.Salt()
	rounds := ci.Rounds()
	if len(salt) != crypto.SaltSize || rounds < crypto.MinRounds || rounds > crypto.MaxRounds {
		return nil, errors.New("cipher carries no valid container parameters")
	}

	plainText, err := MarshalSecrets(secrets)
	if err != nil {
		return nil, err
	}
	cipherText, err := ci.Encrypt(plainText)
	if err != nil {
		return nil, fmt.Errorf("encrypting container: %w", err)
	}

	out := make([]byte, 0, len(signature)+2+len(salt)+len(cipherText))
	out = append(out, signature...)
	out = append(out, byte(len(salt)))
	out = append(out, salt...)
	out = append(out, byte(rounds))
	out = append(out, cipherText...)
	return out, nil
}

// decodeInput carries everything one format generation might need.
type decodeInput struct {
	data     []byte // the whole container
	body     []byte // the bytes after the header, nil without a valid header
	salt     []byte
	rounds   int
	password string
	cipher   *crypto.CipherInfo
}

type generation struct {
	format Format
	open   func(in decodeInput) ([]*vault.Secret, error)
}

// generations is ordered newest first. Introducing a format means adding
// one entry here.
var generations = []generation{
	{FormatJSON, openJSON},
	{FormatGob, openGob},
	{FormatGobWithoutNul, openGobWithoutNul},
	{FormatPBE, openPBE},
}

// Decode opens a container of any generation. The cipher is the one built
// from the container's own header parameters (or freshly calibrated ones
// when the header is absent); the password is needed again for the
// generations that derived their keys differently. Secrets from the legacy
// generations are re-sorted, since those formats ordered case sensitively.
//
// Every generation is tried before giving up, so the only error is
// ErrInvalidPassword.
func Decode(data []byte, password string, ci *crypto.CipherInfo) ([]*vault.Secret, Format, error) {
	in := decodeInput{
		data:     data,
		password: password,
		cipher:   ci,
	}
	if salt, rounds := ParseParams(data); salt != nil {
		in.salt = salt
		in.rounds = rounds
		in.body = data[len(signature)+2+len(salt):]
	}

	for _, g := range generations {
		secrets, err := g.open(in)
		if err != nil {
			continue
		}
		if !g.format.Current() {
			vault.SortSecrets(secrets)
		}
		return secrets, g.format, nil
	}
	return nil, FormatUnknown, ErrInvalidPassword
}

// headerMatchesCipher rejects a generation early when the header was
// written with parameters the cipher was not derived from.
func headerMatchesCipher(in decodeInput) bool {
	return in.body != nil &&
		bytes.Equal(in.salt, in.cipher.Salt()) &&
		in.rounds == in.cipher.Rounds()
}

func openJSON(in decodeInput) ([]*vault.Secret, error) {
	if !headerMatchesCipher(in) {
		return nil, errors.New("header does not match cipher parameters")
	}
	plainText, err := in.cipher.Decrypt(in.body)
	if err != nil {
		return nil, err
	}
	return UnmarshalSecrets(plainText)
}

func openGob(in decodeInput) ([]*vault.Secret, error) {
	if !headerMatchesCipher(in) {
		return nil, errors.New("header does not match cipher parameters")
	}
	plainText, err := in.cipher.Decrypt(in.body)
	if err != nil {
		return nil, err
	}
	return decodeStream(plainText)
}

func openGobWithoutNul(in decodeInput) ([]*vault.Secret, error) {
	if in.body == nil {
		return nil, errors.New("no header parameters")
	}
	key, err := crypto.DeriveKeyWithoutNul(in.password, in.salt, in.rounds)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(key)

	ci := crypto.NewCipherInfo(key, in.salt, in.rounds)
	defer ci.Destroy()

	plainText, err := ci.Decrypt(in.body)
	if err != nil {
		return nil, err
	}
	return decodeStream(plainText)
}

func openPBE(in decodeInput) ([]*vault.Secret, error) {
	ci := crypto.NewCipherInfoPBE(in.password)
	defer ci.Destroy()

	plainText, err := ci.Decrypt(in.data)
	if err != nil {
		return nil, err
	}
	return decodeStream(plainText)
}
