// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// align16 rounds n up to the AES block size.
func align16(n uint64) uint64 {
	return (n + aes.BlockSize - 1) &^ (aes.BlockSize - 1)
}

// padAES zero-pads data to the AES block size. Aligned input is returned as is.
func padAES(data []byte) []byte {
	size := align16(uint64(len(data)))
	if size == uint64(len(data)) {
		return data
	}

	out := make([]byte, size)
	copy(out, data)
	return out
}

// validateKey checks that key is usable for AES-256.
func validateKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	return nil
}

// ParseKey decodes an AES-256 key from hex (optional 0x prefix) or base64 text.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	hexText := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if key, err := hex.DecodeString(hexText); err == nil {
		if err := validateKey(key); err != nil {
			return nil, err
		}

		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: neither hex nor base64: %w", ErrInvalidKey, err)
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	return key, nil
}

// decryptECB decrypts data in place with AES-256 ECB and no padding.
func decryptECB(key, data []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(data)%aes.BlockSize != 0 {
		return fmt.Errorf("decrypt: %d bytes is not a multiple of %d", len(data), aes.BlockSize)
	}

	for off := 0; off < len(data); off += aes.BlockSize {
		block.Decrypt(data[off:off+aes.BlockSize], data[off:off+aes.BlockSize])
	}

	return nil
}

// encryptECB pads data with zeros to the AES block size and encrypts it with AES-256 ECB.
func encryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	out := make([]byte, align16(uint64(len(data))))
	copy(out, data)
	for off := 0; off < len(out); off += aes.BlockSize {
		block.Encrypt(out[off:off+aes.BlockSize], out[off:off+aes.BlockSize])
	}

	return out, nil
}
