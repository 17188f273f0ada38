// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/bldroot/lib/secret"
)

// Extension marks an age-encrypted signing key.
const Extension = ".age"

// maxKeySize bounds decrypted key material. RSA-4096 PEM keys are a
// little over 3 KiB.
const maxKeySize = 64 * 1024

// IsSealed reports whether path names an age-encrypted key.
func IsSealed(path string) bool {
	return strings.HasSuffix(path, Extension)
}

// KeyName returns the name a key is exposed under inside the sandbox:
// the base name with any ".age" suffix removed.
func KeyName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Extension)
}

// LoadIdentities reads age identities (AGE-SECRET-KEY-1... lines) from
// an identity file. The file content is zeroed after parsing.
func LoadIdentities(path string) ([]age.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading age identity %s: %w", path, err)
	}
	defer secret.Zero(data)

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity %s: %w", path, err)
	}
	return identities, nil
}

// DecryptFile decrypts the sealed key at path with the identities in
// identityPath. The caller must Close the returned buffer.
func DecryptFile(path, identityPath string) (*secret.Buffer, error) {
	if identityPath == "" {
		return nil, fmt.Errorf("signing key %s is sealed but no age identity is configured", path)
	}

	identities, err := LoadIdentities(identityPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sealed key: %w", err)
	}
	defer file.Close()

	plaintext, err := age.Decrypt(file, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", path, err)
	}

	buffer, err := secret.NewFromReader(plaintext, maxKeySize)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted key %s: %w", path, err)
	}
	return buffer, nil
}

// EncryptFile seals plaintext to the given age recipients (age1...
// strings) and writes the ciphertext to path with mode 0600.
func EncryptFile(path string, plaintext []byte, recipientKeys []string) error {
	if len(recipientKeys) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing age encryption: %w", err)
	}

	return os.WriteFile(path, ciphertext.Bytes(), 0o600)
}
