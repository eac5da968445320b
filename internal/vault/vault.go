// Package vault implements the private vault codec: password-derived
// authenticated encryption of the sensitive subset of links. The resulting
// ciphertext string is carried opaquely inside the synced document; the sync
// layer never sees the plaintext.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/cryptox"
	"github.com/dmitrijs2005/linkdeck/internal/models"
)

// formatVersion is the first byte of the decoded ciphertext, reserved for
// future changes to the envelope layout.
const formatVersion = 0x01

// Payload is the plaintext content of the vault: the links of the reserved
// private pseudo-category.
type Payload struct {
	Links []models.Link `json:"links"`
}

// Encrypt derives a key from the password with a fresh random salt and
// authenticated-encrypts the JSON-serialized payload. The returned string
// encodes version, salt, nonce and sealed data, so decryption needs only
// the password.
func Encrypt(password string, payload Payload) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vault payload marshal: %w", err)
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	sealed, nonce, err := cryptox.Seal(plaintext, key)
	if err != nil {
		return "", fmt.Errorf("vault seal: %w", err)
	}

	buf := make([]byte, 0, 1+len(salt)+len(nonce)+len(sealed))
	buf = append(buf, formatVersion)
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. Every failure mode (bad encoding, truncated
// envelope, failed authentication) is reported as common.ErrDecryption:
// wrong password and corrupted data are indistinguishable on purpose.
func Decrypt(password string, ciphertext string) (Payload, error) {
	var payload Payload

	buf, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return payload, common.ErrDecryption
	}

	minLen := 1 + cryptox.SaltSize + cryptox.NonceSize
	if len(buf) < minLen || buf[0] != formatVersion {
		return payload, common.ErrDecryption
	}

	salt := buf[1 : 1+cryptox.SaltSize]
	nonce := buf[1+cryptox.SaltSize : minLen]
	sealed := buf[minLen:]

	key := cryptox.DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Open(sealed, nonce, key)
	if err != nil {
		return payload, common.ErrDecryption
	}

	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return payload, common.ErrDecryption
	}

	return payload, nil
}

// ChangePassword re-encrypts the vault under a new password. Knowledge of
// the old password is proven by decrypting first; a wrong old password
// surfaces as common.ErrDecryption and leaves the ciphertext unchanged.
func ChangePassword(oldPassword, newPassword, ciphertext string) (string, error) {
	payload, err := Decrypt(oldPassword, ciphertext)
	if err != nil {
		return "", err
	}
	return Encrypt(newPassword, payload)
}
