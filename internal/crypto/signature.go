package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// signature constants
const (
	SigTypeEd25519 = "ed25519"
	// CanonJCS marks signatures over RFC 8785 canonical JSON
	CanonJCS = "jcs"
)

// SignatureHeader metadata
type SignatureHeader struct {
	Canon   string `json:"canon"`
	SigType string `json:"sig_type"`
}

// SignatureEnvelope header + payload
type SignatureEnvelope struct {
	Header    SignatureHeader
	Signature []byte
}

// WriteSignature creates the envelope: a JSON header line, then the hex
// signature.
func WriteSignature(sig []byte) []byte {
	headerBytes, _ := json.Marshal(SignatureHeader{Canon: CanonJCS, SigType: SigTypeEd25519})
	return []byte(string(headerBytes) + "\n" + hex.EncodeToString(sig) + "\n")
}

// ReadSignature parses an envelope written by WriteSignature.
func ReadSignature(data []byte) (*SignatureEnvelope, error) {
	content := strings.TrimSpace(string(data))

	headerLine, payload, ok := strings.Cut(content, "\n")
	if !ok || !strings.HasPrefix(headerLine, "{") {
		return nil, fmt.Errorf("invalid signature format: expected header and payload")
	}

	var header SignatureHeader
	if err := json.Unmarshal([]byte(headerLine), &header); err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}
	if header.SigType != SigTypeEd25519 {
		return nil, fmt.Errorf("unsupported signature type %q", header.SigType)
	}
	if header.Canon != CanonJCS {
		return nil, fmt.Errorf("unsupported canonicalization %q", header.Canon)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}

	return &SignatureEnvelope{Header: header, Signature: sig}, nil
}
