package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/ports"
)

// envelopeRole marks the single transcript entry of an encrypted session envelope.
const envelopeRole = "__encrypted__"

// profileEnvelopePrefix marks the summary of an encrypted profile envelope.
const profileEnvelopePrefix = "enc:v1:"

// ErrMissingEnvelope is returned when a stored record was not written by the encryption middleware.
var ErrMissingEnvelope = errors.New("record is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

func (c EncryptionConfig) mustValidate() {
	if len(c.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores sessions as AES-GCM envelopes.
// Only the user ID, state and timestamps remain visible to the underlying store.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	config.mustValidate()
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, userID string, session *domain.Session) error {
	blob, err := seal(session, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	envelope := &domain.Session{
		UserID:       session.UserID,
		CurrentState: session.CurrentState,
		Transcript:   []domain.Message{{Role: envelopeRole, Content: blob}},
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	return m.next.Save(ctx, userID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, userID string) (*domain.Session, error) {
	envelope, err := m.next.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Fail secure: a plain record means encryption was bypassed.
	if len(envelope.Transcript) != 1 || envelope.Transcript[0].Role != envelopeRole {
		return nil, ErrMissingEnvelope
	}

	var session domain.Session
	if err := open(envelope.Transcript[0].Content, m.config, &session); err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}
	return &session, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, userID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

type profileEncryptionMiddleware struct {
	next   ports.ProfileStore
	config EncryptionConfig
}

// NewProfileEncryptionMiddleware stores profiles as AES-GCM envelopes carried in the summary column.
func NewProfileEncryptionMiddleware(config EncryptionConfig) ProfileMiddleware {
	config.mustValidate()
	return func(next ports.ProfileStore) ports.ProfileStore {
		return &profileEncryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *profileEncryptionMiddleware) Upsert(ctx context.Context, profile *domain.HikerProfile) error {
	blob, err := seal(profile, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt profile: %w", err)
	}
	return m.next.Upsert(ctx, &domain.HikerProfile{
		UserID:          profile.UserID,
		ProfileSummary:  profileEnvelopePrefix + blob,
		ProfileComplete: profile.ProfileComplete,
		UpdatedAt:       profile.UpdatedAt,
	})
}

func (m *profileEncryptionMiddleware) Get(ctx context.Context, userID string) (*domain.HikerProfile, error) {
	envelope, err := m.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	blob, ok := strings.CutPrefix(envelope.ProfileSummary, profileEnvelopePrefix)
	if !ok {
		return nil, ErrMissingEnvelope
	}

	var profile domain.HikerProfile
	if err := open(blob, m.config, &profile); err != nil {
		return nil, fmt.Errorf("failed to decrypt profile: %w", err)
	}
	return &profile, nil
}

// Helpers

func seal(v any, key []byte) (string, error) {
	plainText, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	ciphertext, err := encrypt(plainText, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func open(blob string, config EncryptionConfig, v any) error {
	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, config.ActiveKey, config.FallbackKeys)
	if err != nil {
		return err
	}
	return json.Unmarshal(plainText, v)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
