package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// Version identifies the encryption scheme carried by stored records.
// Bumped if the scheme ever changes so old records remain decryptable.
const Version = 1

const ivSize = 12 // 96-bit GCM nonce

// Sentinel errors for the two cipher failure modes. Callers map these to the
// wire-level ENCRYPTION_ERROR and DECRYPTION_ERROR codes.
var (
	ErrEncryption = errors.New("secret: encryption failed")
	ErrDecryption = errors.New("secret: decryption failed")
)

// EncryptedSecret is the stored form of an encrypted API key. Ciphertext and
// IV are standard base64; the GCM auth tag is part of the ciphertext.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Version    int    `json:"version"`
}

// Cipher encrypts and decrypts individual secret strings with the keystore
// key. Safe for concurrent use.
type Cipher struct {
	keystore *Keystore
}

// NewCipher returns a cipher backed by ks.
func NewCipher(ks *Keystore) *Cipher {
	return &Cipher{keystore: ks}
}

// Encrypt seals plaintext under a fresh random 96-bit IV. Encrypting the
// same plaintext twice yields different ciphertexts.
func (c *Cipher) Encrypt(plaintext string) (EncryptedSecret, error) {
	handle, err := c.keystore.Handle()
	if err != nil {
		return EncryptedSecret{}, fmt.Errorf("%w: key unavailable: %v", ErrEncryption, err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedSecret{}, fmt.Errorf("%w: generate iv: %v", ErrEncryption, err)
	}

	sealed := handle.aead.Seal(nil, iv, []byte(plaintext), nil)
	return EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Version:    Version,
	}, nil
}

// Decrypt opens a stored record. Malformed base64, a wrong-size IV, and a
// failed auth tag all return ErrDecryption; it never returns garbage.
func (c *Cipher) Decrypt(data EncryptedSecret) (string, error) {
	handle, err := c.keystore.Handle()
	if err != nil {
		return "", fmt.Errorf("%w: key unavailable: %v", ErrDecryption, err)
	}

	sealed, err := base64.StdEncoding.DecodeString(data.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext: %v", ErrDecryption, err)
	}
	iv, err := base64.StdEncoding.DecodeString(data.IV)
	if err != nil {
		return "", fmt.Errorf("%w: malformed iv: %v", ErrDecryption, err)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("%w: iv is %d bytes, want %d", ErrDecryption, len(iv), ivSize)
	}

	plain, err := handle.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}
