package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"catalog-backup/internal/metacard"
)

// SnapshotFormatVersion is written into every snapshot envelope.
const SnapshotFormatVersion = 1

// snapshot is the on-disk envelope. The ID is kept in clear so stray files
// can be attributed without decrypting them.
type snapshot struct {
	Version     int             `json:"version"`
	ID          string          `json:"id"`
	Compression CompressionType `json:"compression"`
	Encrypted   bool            `json:"encrypted"`
	Salt        []byte          `json:"salt,omitempty"`
	Checksum    string          `json:"checksum"`
	Payload     []byte          `json:"payload"`
}

// CodecConfig selects the payload transformations applied by a Codec.
type CodecConfig struct {
	Compression      CompressionType
	CompressionLevel int
	Encryption       EncryptionConfig
}

// Codec serializes metacards into self-describing snapshot envelopes.
type Codec struct {
	compression CompressionType
	level       int
	compressor  *CompressionManager
	encryption  *EncryptionManager
}

// NewCodec creates a codec. A zero CodecConfig produces plain JSON payloads.
func NewCodec(config CodecConfig) (*Codec, error) {
	compression := config.Compression
	if compression == "" {
		compression = CompressionTypeNone
	}
	if _, err := ParseCompressionType(string(compression)); err != nil {
		return nil, err
	}
	if err := config.Encryption.Validate(); err != nil {
		return nil, NewConfigurationError("invalid encryption configuration", err)
	}

	encryption := config.Encryption
	return &Codec{
		compression: compression,
		level:       config.CompressionLevel,
		compressor:  NewCompressionManager(),
		encryption:  NewEncryptionManager(&encryption),
	}, nil
}

// Encode serializes m into a snapshot.
func (c *Codec) Encode(m metacard.Metacard) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, NewSerializationError(fmt.Sprintf("failed to serialize metacard %s", m.ID), err)
	}
	sum := sha256.Sum256(raw)

	payload, err := c.compressor.Compress(raw, c.compression, c.level)
	if err != nil {
		return nil, err
	}

	payload, salt, err := c.encryption.Encrypt(payload)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snapshot{
		Version:     SnapshotFormatVersion,
		ID:          m.ID,
		Compression: c.compression,
		Encrypted:   c.encryption.IsEnabled(),
		Salt:        salt,
		Checksum:    hex.EncodeToString(sum[:]),
		Payload:     payload,
	})
	if err != nil {
		return nil, NewSerializationError(fmt.Sprintf("failed to serialize snapshot for %s", m.ID), err)
	}
	return data, nil
}

// Decode restores a metacard from a snapshot. The envelope describes its own
// compression; encrypted snapshots need a codec configured with the key.
func (c *Codec) Decode(data []byte) (metacard.Metacard, error) {
	var env snapshot
	if err := json.Unmarshal(data, &env); err != nil {
		return metacard.Metacard{}, NewCorruptionError("snapshot is not a valid envelope", err)
	}
	if env.Version != SnapshotFormatVersion {
		return metacard.Metacard{}, NewCorruptionError(fmt.Sprintf("unsupported snapshot version %d", env.Version), nil)
	}

	payload := env.Payload
	if env.Encrypted {
		if !c.encryption.IsEnabled() {
			return metacard.Metacard{}, NewEncryptionError(fmt.Sprintf("snapshot %s is encrypted but no key is configured", env.ID), nil)
		}
		var err error
		if payload, err = c.encryption.Decrypt(payload, env.Salt); err != nil {
			return metacard.Metacard{}, err
		}
	}

	raw, err := c.compressor.Decompress(payload, env.Compression)
	if err != nil {
		return metacard.Metacard{}, err
	}

	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return metacard.Metacard{}, NewCorruptionError(fmt.Sprintf("checksum mismatch for snapshot %s", env.ID), nil)
	}

	var m metacard.Metacard
	if err := json.Unmarshal(raw, &m); err != nil {
		return metacard.Metacard{}, NewCorruptionError(fmt.Sprintf("failed to deserialize metacard %s", env.ID), err)
	}
	if m.ID != env.ID {
		return metacard.Metacard{}, NewCorruptionError(fmt.Sprintf("snapshot %s holds metacard %s", env.ID, m.ID), nil)
	}
	if m.Attributes == nil {
		m.Attributes = make(map[string]interface{})
	}
	return m, nil
}

// PeekID returns the ID recorded in a snapshot envelope without decoding the
// payload.
func PeekID(data []byte) (string, error) {
	var env struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", NewCorruptionError("snapshot is not a valid envelope", err)
	}
	return env.ID, nil
}
