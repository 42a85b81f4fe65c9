// Package qr renders registration tickets as QR code PNGs. With a secret the
// payload is sealed with AES-GCM so only the check-in desk can read it.
package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// Payload is what a scanned ticket reveals.
type Payload struct {
	Ticket         string    `json:"ticket"`
	RegistrationID string    `json:"registration_id"`
	Kind           string    `json:"kind"`
	UserID         string    `json:"user_id,omitempty"`
	TeamID         string    `json:"team_id,omitempty"`
	FestID         string    `json:"fest_id"`
	EventID        string    `json:"event_id,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
}

type Generator struct {
	aead cipher.AEAD
	size int
}

// NewGenerator builds a generator. An empty secret leaves payloads as plain
// JSON. size <= 0 falls back to 256 pixels.
func NewGenerator(secret string, size int) (*Generator, error) {
	if size <= 0 {
		size = defaultSize
	}
	g := &Generator{size: size}
	if secret == "" {
		return g, nil
	}

	key := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	g.aead, err = cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Generate returns the PNG for p.
func (g *Generator) Generate(p Payload) ([]byte, error) {
	text, err := g.Encode(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(text, qrcode.Medium, g.size)
}

// Encode returns the text stored in the QR code.
func (g *Generator) Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	if g.aead == nil {
		return string(data), nil
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode.
func (g *Generator) Decode(text string) (Payload, error) {
	var p Payload
	data := []byte(text)

	if g.aead != nil {
		raw, err := base64.URLEncoding.DecodeString(text)
		if err != nil {
			return p, fmt.Errorf("decode qr payload: %w", err)
		}
		n := g.aead.NonceSize()
		if len(raw) < n {
			return p, errors.New("qr payload too short")
		}
		data, err = g.aead.Open(nil, raw[:n], raw[n:], nil)
		if err != nil {
			return p, fmt.Errorf("open qr payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse qr payload: %w", err)
	}
	return p, nil
}
