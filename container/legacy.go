package container

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/tmarsden/strongbox/vault"
)

// The pre-JSON generations stored the secrets as a serialized object
// stream. Its gob rendition survives here for reading old containers (and
// for writing them in tests); nothing else produces it anymore.

func encodeStream(secrets []*vault.Secret) ([]byte, error) {
	flat := make([]vault.SecretData, len(secrets))
	for i, s := range secrets {
		flat[i] = s.Data()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(flat); err != nil {
		return nil, fmt.Errorf("encoding secrets stream: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeStream(data []byte) ([]*vault.Secret, error) {
	var flat []vault.SecretData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&flat); err != nil {
		return nil, fmt.Errorf("decoding secrets stream: %w", err)
	}

	secrets := make([]*vault.Secret, len(flat))
	for i, d := range flat {
		secrets[i] = vault.FromData(d)
	}
	return secrets, nil
}
