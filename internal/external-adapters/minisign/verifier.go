// Package minisign provides minisign signature verification.
package minisign

import (
	"fmt"
	"os"

	"github.com/jedisct1/go-minisign"
)

// Verifier verifies minisign signatures against a recipe-pinned public
// key. This lives in external-adapters to isolate the external dependency.
type Verifier struct{}

// NewVerifier creates a new minisign verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify checks the signature at sigPath over the file at filePath using
// the base64-encoded public key from the recipe.
func (v *Verifier) Verify(filePath, sigPath, publicKey string) error {
	pub, err := minisign.NewPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("failed to parse minisign public key: %w", err)
	}

	sig, err := minisign.NewSignatureFromFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read minisign signature: %w", err)
	}

	//nolint:gosec // G304: filePath is a downloaded artifact under a controlled directory
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	valid, err := pub.Verify(content, sig)
	if err != nil {
		return fmt.Errorf("minisign verification error: %w", err)
	}
	if !valid {
		return fmt.Errorf("minisign signature verification failed")
	}
	return nil
}
