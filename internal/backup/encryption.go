package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32
	saltSize         = 16
	pbkdf2Iterations = 100000
)

// Key sources for snapshot encryption.
const (
	KeySourceEnv        = "env"
	KeySourceFile       = "file"
	KeySourcePassphrase = "passphrase"
)

// EncryptionConfig defines encryption settings
type EncryptionConfig struct {
	Enabled    bool
	KeySource  string // "env", "file", "passphrase"
	KeyPath    string // Path to a 32 byte key file
	KeyEnvVar  string // Environment variable holding a hex-encoded key
	Passphrase string

	// KeyRetriever overrides KeySource, mainly for tests.
	KeyRetriever func() ([]byte, error)
}

// Validate validates the EncryptionConfig
func (ec *EncryptionConfig) Validate() error {
	if !ec.Enabled || ec.KeyRetriever != nil {
		return nil
	}

	var errors ValidationErrors
	switch ec.KeySource {
	case KeySourceEnv:
		if ec.KeyEnvVar == "" {
			errors.Add("key_env_var", "key environment variable is required for env key source", nil)
		}
	case KeySourceFile:
		if ec.KeyPath == "" {
			errors.Add("key_path", "key path is required for file key source", nil)
		}
	case KeySourcePassphrase:
		if ec.Passphrase == "" {
			errors.Add("passphrase", "passphrase is required for passphrase key source", nil)
		}
	default:
		errors.Add("key_source", "key source must be one of env, file, passphrase", ec.KeySource)
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// usesSalt reports whether keys are derived per snapshot from a passphrase.
func (ec *EncryptionConfig) usesSalt() bool {
	return ec.KeyRetriever == nil && ec.KeySource == KeySourcePassphrase
}

// key returns the AES-256 key. salt is only consulted for passphrase keys.
func (ec *EncryptionConfig) key(salt []byte) ([]byte, error) {
	if ec.KeyRetriever != nil {
		return ec.KeyRetriever()
	}

	switch ec.KeySource {
	case KeySourceEnv:
		keyStr := strings.TrimSpace(os.Getenv(ec.KeyEnvVar))
		if keyStr == "" {
			return nil, fmt.Errorf("encryption key not found in environment variable %s", ec.KeyEnvVar)
		}
		key, err := hex.DecodeString(keyStr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex key from environment variable: %w", err)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("encryption key must be %d bytes for AES-256, got %d bytes", keySize, len(key))
		}
		return key, nil

	case KeySourceFile:
		key, err := os.ReadFile(ec.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read encryption key from file %s: %w", ec.KeyPath, err)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("encryption key file must contain %d bytes for AES-256, got %d bytes", keySize, len(key))
		}
		return key, nil

	case KeySourcePassphrase:
		if len(salt) == 0 {
			return nil, fmt.Errorf("passphrase key derivation requires a salt")
		}
		return pbkdf2.Key([]byte(ec.Passphrase), salt, pbkdf2Iterations, keySize, sha256.New), nil

	default:
		return nil, fmt.Errorf("unsupported key source: %s", ec.KeySource)
	}
}

// EncryptionManager seals snapshot payloads with AES-256-GCM.
type EncryptionManager struct {
	config *EncryptionConfig
}

// NewEncryptionManager creates a new encryption manager
func NewEncryptionManager(config *EncryptionConfig) *EncryptionManager {
	if config == nil {
		config = &EncryptionConfig{}
	}
	return &EncryptionManager{config: config}
}

// IsEnabled returns whether encryption is enabled
func (em *EncryptionManager) IsEnabled() bool {
	return em.config.Enabled
}

// Encrypt seals data. The returned salt must be passed back to Decrypt; it is
// empty unless the key is derived from a passphrase.
func (em *EncryptionManager) Encrypt(data []byte) (ciphertext, salt []byte, err error) {
	if !em.config.Enabled {
		return data, nil, nil
	}

	if em.config.usesSalt() {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, NewEncryptionError("failed to generate salt", err)
		}
	}

	gcm, err := em.cipher(salt)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, NewEncryptionError("failed to generate nonce", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), salt, nil
}

// Decrypt opens data sealed by Encrypt.
func (em *EncryptionManager) Decrypt(encryptedData, salt []byte) ([]byte, error) {
	gcm, err := em.cipher(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encryptedData) < nonceSize {
		return nil, NewEncryptionError("encrypted data too short", nil)
	}

	nonce, ciphertext := encryptedData[:nonceSize], encryptedData[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt data", err)
	}
	return plaintext, nil
}

func (em *EncryptionManager) cipher(salt []byte) (cipher.AEAD, error) {
	key, err := em.config.key(salt)
	if err != nil {
		return nil, NewEncryptionError("failed to get encryption key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// GenerateKey generates a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, NewEncryptionError("failed to generate encryption key", err)
	}
	return key, nil
}
