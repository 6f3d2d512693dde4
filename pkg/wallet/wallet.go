package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer performs detached signatures for transaction messages.
type Signer interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
}

// Provider hands out a user's wallets. Key decryption and storage live in an
// external collaborator; the engine only sees ready-to-sign material.
type Provider interface {
	PrimaryWallet(ctx context.Context, owner string) (Signer, error)
	AdditionalWallets(ctx context.Context, owner string) ([]Signer, error)
}

// Local wraps a local private key.
type Local struct {
	key solana.PrivateKey
}

// NewLocalFromKeygen loads a solana-keygen JSON file.
func NewLocalFromKeygen(path string) (Local, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return Local{}, fmt.Errorf("load keypair: %w", err)
	}
	return Local{key: key}, nil
}

// NewLocalFromBase58 constructs a local signer from a base58-encoded key.
func NewLocalFromBase58(privateKey string) (Local, error) {
	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return Local{}, fmt.Errorf("decode base58 key: %w", err)
	}
	return Local{key: key}, nil
}

// NewLocalFromPrivateKey constructs a local signer from an existing key.
func NewLocalFromPrivateKey(key solana.PrivateKey) Local {
	return Local{key: key}
}

// PublicKey returns the associated public key.
func (l Local) PublicKey() solana.PublicKey {
	return l.key.PublicKey()
}

// SignMessage signs the provided message bytes.
func (l Local) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	select {
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	default:
		sig, err := l.key.Sign(message)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("sign message: %w", err)
		}
		return sig, nil
	}
}

// Static is a Provider backed by in-memory signers, used by the CLI and in
// tests where a single local keypair plays every role.
type Static struct {
	Primary    Signer
	Additional []Signer
}

// PrimaryWallet returns the fixed primary signer.
func (s Static) PrimaryWallet(ctx context.Context, owner string) (Signer, error) {
	if s.Primary == nil {
		return nil, fmt.Errorf("no primary wallet configured")
	}
	return s.Primary, nil
}

// AdditionalWallets returns the fixed additional signers.
func (s Static) AdditionalWallets(ctx context.Context, owner string) ([]Signer, error) {
	return s.Additional, nil
}
