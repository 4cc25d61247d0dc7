// Package crypto signs and verifies evidence bundle manifests with Ed25519.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a new ed25519 key pair. The private key is created
// with mode 0600 and an existing file is never overwritten.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := writePEM(privateKeyPath, privateKeyType, privateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := writePEM(publicKeyPath, publicKeyType, publicKey, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func writePEM(path, blockType string, key []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: key})
}

func readPEM(path, blockType string, size int) ([]byte, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	key, err := decodePEM(keyData, blockType, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

func decodePEM(keyData []byte, blockType string, size int) ([]byte, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", blockType, block.Type)
	}
	if len(block.Bytes) != size {
		return nil, fmt.Errorf("invalid key size %d", len(block.Bytes))
	}
	return block.Bytes, nil
}

// Sign data with the private key at privateKeyPath
func Sign(data []byte, privateKeyPath string) ([]byte, error) {
	key, err := readPEM(privateKeyPath, privateKeyType, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(ed25519.PrivateKey(key), data), nil
}

// PublicKeyPEM derives the PEM encoded public key of a private key file.
func PublicKeyPEM(privateKeyPath string) ([]byte, error) {
	key, err := readPEM(privateKeyPath, privateKeyType, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	pub := ed25519.PrivateKey(key).Public().(ed25519.PublicKey)
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyType, Bytes: pub}), nil
}

// Verify reports whether signature is valid for data
func Verify(data []byte, signature []byte, publicKeyPath string) (bool, error) {
	key, err := readPEM(publicKeyPath, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(key), data, signature), nil
}

// VerifyPEM is Verify with the public key given as PEM bytes
func VerifyPEM(data []byte, signature []byte, publicKeyPEM []byte) (bool, error) {
	key, err := decodePEM(publicKeyPEM, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(key), data, signature), nil
}
