package util

import (
	"bytes"
	"crypto/aes"
	"testing"
)

func TestAESCBC(t *testing.T) {
	key, _ := RandomBytes(AESKeySize)
	plainText := []byte("hello world")

	t.Run("EncryptDecrypt", func(t *testing.T) {
		cipherText, err := EncryptAESCBC(plainText, key)
		if err != nil {
			t.Fatalf("EncryptAESCBC failed: %v", err)
		}
		if len(cipherText)%aes.BlockSize != 0 {
			t.Errorf("ciphertext length %d is not block aligned", len(cipherText))
		}

		decrypted, err := DecryptAESCBC(cipherText, key)
		if err != nil {
			t.Fatalf("DecryptAESCBC failed: %v", err)
		}
		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		// Fixed IV means identical inputs produce identical output; the
		// container format depends on this staying true.
		c1, _ := EncryptAESCBC(plainText, key)
		c2, _ := EncryptAESCBC(plainText, key)
		if !bytes.Equal(c1, c2) {
			t.Error("expected identical ciphertext for identical inputs")
		}
	})

	t.Run("ExactBlockGrowsByOneBlock", func(t *testing.T) {
		block := make([]byte, aes.BlockSize)
		cipherText, err := EncryptAESCBC(block, key)
		if err != nil {
			t.Fatalf("EncryptAESCBC failed: %v", err)
		}
		if len(cipherText) != 2*aes.BlockSize {
			t.Errorf("expected %d bytes, got %d", 2*aes.BlockSize, len(cipherText))
		}
		decrypted, err := DecryptAESCBC(cipherText, key)
		if err != nil {
			t.Fatalf("DecryptAESCBC failed: %v", err)
		}
		if !bytes.Equal(block, decrypted) {
			t.Error("round trip of exact block failed")
		}
	})

	t.Run("WrongKeyFailsPaddingCheck", func(t *testing.T) {
		cipherText, _ := EncryptAESCBC(plainText, key)
		other, _ := RandomBytes(AESKeySize)
		decrypted, err := DecryptAESCBC(cipherText, other)
		if err == nil && bytes.Equal(decrypted, plainText) {
			t.Error("decryption with wrong key returned the plaintext")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		if _, err := EncryptAESCBC(plainText, []byte("too short")); err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
		if _, err := DecryptAESCBC(plainText, []byte("too short")); err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectUnalignedCipherText", func(t *testing.T) {
		if _, err := DecryptAESCBC([]byte("short"), key); err == nil {
			t.Error("expected error for unaligned ciphertext, got nil")
		}
	})
}

func TestPKCS7(t *testing.T) {
	for n := 0; n <= 2*aes.BlockSize; n++ {
		in := bytes.Repeat([]byte{0xAB}, n)
		padded := pkcs7Pad(in, aes.BlockSize)
		if len(padded)%aes.BlockSize != 0 || len(padded) == len(in) {
			t.Fatalf("pad(%d) produced length %d", n, len(padded))
		}
		out, err := pkcs7Unpad(padded, aes.BlockSize)
		if err != nil {
			t.Fatalf("unpad(pad(%d)) failed: %v", n, err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("round trip failed for length %d", n)
		}
	}

	t.Run("RejectCorruptPadding", func(t *testing.T) {
		padded := pkcs7Pad([]byte("data"), aes.BlockSize)
		padded[len(padded)-1] = 0
		if _, err := pkcs7Unpad(padded, aes.BlockSize); err == nil {
			t.Error("expected error for zero padding byte")
		}
		padded[len(padded)-1] = aes.BlockSize + 1
		if _, err := pkcs7Unpad(padded, aes.BlockSize); err == nil {
			t.Error("expected error for oversized padding byte")
		}
	})
}

func TestBcryptRaw(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, BcryptSaltSize)
	password := []byte("secret")

	t.Run("Deterministic", func(t *testing.T) {
		k1, err := BcryptRaw(password, salt, 4)
		if err != nil {
			t.Fatalf("BcryptRaw failed: %v", err)
		}
		if len(k1) != AESKeySize {
			t.Errorf("expected %d-byte key, got %d", AESKeySize, len(k1))
		}
		k2, _ := BcryptRaw(password, salt, 4)
		if !bytes.Equal(k1, k2) {
			t.Error("expected identical keys for identical inputs")
		}
	})

	t.Run("PasswordSensitive", func(t *testing.T) {
		k1, _ := BcryptRaw(password, salt, 4)
		k2, _ := BcryptRaw([]byte("secrer"), salt, 4)
		if bytes.Equal(k1, k2) {
			t.Error("different passwords produced the same key")
		}
	})

	t.Run("TrailingNulSensitive", func(t *testing.T) {
		// The generation fix appends a NUL; the schedule must see it.
		k1, _ := BcryptRaw(password, salt, 4)
		k2, _ := BcryptRaw(append(CopyBytes(password), 0), salt, 4)
		if bytes.Equal(k1, k2) {
			t.Error("trailing NUL did not change the key")
		}
	})

	t.Run("SaltSensitive", func(t *testing.T) {
		k1, _ := BcryptRaw(password, salt, 4)
		other := bytes.Repeat([]byte{0x43}, BcryptSaltSize)
		k2, _ := BcryptRaw(password, other, 4)
		if bytes.Equal(k1, k2) {
			t.Error("different salts produced the same key")
		}
	})

	t.Run("RoundsSensitive", func(t *testing.T) {
		k1, _ := BcryptRaw(password, salt, 4)
		k2, _ := BcryptRaw(password, salt, 5)
		if bytes.Equal(k1, k2) {
			t.Error("different rounds produced the same key")
		}
	})

	t.Run("RejectBadRounds", func(t *testing.T) {
		if _, err := BcryptRaw(password, salt, BcryptMinRounds-1); err == nil {
			t.Error("expected error for rounds below minimum")
		}
		if _, err := BcryptRaw(password, salt, BcryptMaxRounds+1); err == nil {
			t.Error("expected error for rounds above maximum")
		}
	})

	t.Run("RejectBadSaltLength", func(t *testing.T) {
		if _, err := BcryptRaw(password, salt[:8], 4); err == nil {
			t.Error("expected error for short salt")
		}
	})

	t.Run("RejectEmptyPassword", func(t *testing.T) {
		if _, err := BcryptRaw(nil, salt, 4); err == nil {
			t.Error("expected error for empty password")
		}
	})
}

func TestCopyBytes(t *testing.T) {
	src := []byte{0x01, 0x02, 0x03}
	dst := CopyBytes(src)
	if !bytes.Equal(dst, src) {
		t.Fatalf("CopyBytes returned %v", dst)
	}

	dst[0] ^= 0xFF
	if src[0] != 0x01 {
		t.Error("mutating the copy reached the source")
	}

	if CopyBytes(nil) != nil {
		t.Error("CopyBytes(nil) should stay nil")
	}
}

func TestWipeBytes(t *testing.T) {
	b := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	WipeBytes(b)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not wiped: %#x", i, c)
		}
	}
	WipeBytes(nil) // must not panic
}

func TestNormalize(t *testing.T) {
	// NFKD decomposes the precomposed é.
	normalized := Normalize("café")
	if normalized != "café" {
		t.Errorf("Normalize failed, got %q", normalized)
	}
}

func TestRandom(t *testing.T) {
	b1, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b2, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if len(b1) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b1))
	}
	if bytes.Equal(b1, b2) {
		t.Error("RandomBytes should produce different outputs")
	}
}
