// Package crypto seals vault secrets with an age X25519 identity. Ciphertext
// is stored base64 encoded so it fits a text column on every dialect.
package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"go.uber.org/zap"
)

var (
	ErrIdentityRequired = errors.New("vault age identity is required in production")
	ErrCiphertext       = errors.New("vault ciphertext is invalid")
)

type Sealer struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewSealer parses VAULT_AGE_IDENTITY. Outside production an empty identity
// is replaced by a process-local key, so sealed rows do not survive a restart.
func NewSealer(cfg config.Config, log *zap.Logger) (*Sealer, error) {
	raw := strings.TrimSpace(cfg.VaultAgeIdentity)
	if raw == "" {
		if cfg.IsProduction() {
			return nil, ErrIdentityRequired
		}
		log.Named("vault.crypto").Warn("VAULT_AGE_IDENTITY not set; using an ephemeral key")
		return Generate()
	}
	return Parse(raw)
}

// Parse builds a sealer from an AGE-SECRET-KEY-1... string.
func Parse(identity string) (*Sealer, error) {
	id, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("parse age identity: %w", err)
	}
	return &Sealer{identity: id, recipient: id.Recipient()}, nil
}

func Generate() (*Sealer, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate age identity: %w", err)
	}
	return &Sealer{identity: id, recipient: id.Recipient()}, nil
}

// Recipient returns the public half, safe to print.
func (s *Sealer) Recipient() string {
	return s.recipient.String()
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		return "", fmt.Errorf("create age encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Sealer) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCiphertext
	}
	r, err := age.Decrypt(bytes.NewReader(raw), s.identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(out), nil
}
