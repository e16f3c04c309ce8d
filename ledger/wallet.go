package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

// DefaultNetworkName is reported by wallets that were not configured with an
// explicit network.
const DefaultNetworkName = "simnet"

// Wallet is a local ed25519 signing agent. It satisfies SigningAgent the same
// way a browser wallet bridge would: hold the key, authorize payloads, submit
// through a node.
type Wallet struct {
	priv        ed25519.PrivateKey
	node        Node
	networkName string
	connected   bool
	sequence    uint64
}

// NewWallet generates a fresh keypair submitting through node.
func NewWallet(node Node) (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return WalletFromKey(priv, node), nil
}

// WalletFromKey wraps an existing private key.
func WalletFromKey(priv ed25519.PrivateKey, node Node) *Wallet {
	return &Wallet{priv: priv, node: node, networkName: DefaultNetworkName}
}

// SetNetworkName overrides the network name reported by Network.
func (w *Wallet) SetNetworkName(name string) { w.networkName = name }

// Address derives the account address from the public key: sha3-256 over the
// key bytes plus a single-signature scheme suffix byte.
func (w *Wallet) Address() string {
	pub := w.priv.Public().(ed25519.PublicKey)
	digest := sha3.Sum256(append(append([]byte{}, pub...), 0x00))
	return "0x" + hex.EncodeToString(digest[:])
}

func (w *Wallet) Connect(ctx context.Context) (AccountInfo, error) {
	w.connected = true
	return AccountInfo{Address: w.Address()}, nil
}

func (w *Wallet) Disconnect(ctx context.Context) error {
	w.connected = false
	return nil
}

func (w *Wallet) Network(ctx context.Context) (NetworkInfo, error) {
	return NetworkInfo{Name: w.networkName}, nil
}

// SignAndSubmit builds a raw transaction around the payload, signs it, and
// submits it through the wallet's node. The wallet must be connected.
func (w *Wallet) SignAndSubmit(ctx context.Context, payload EntryFunctionPayload) (PendingTransaction, error) {
	if !w.connected {
		return PendingTransaction{}, ErrAgentUnavailable
	}

	raw := RawTransaction{
		Sender:         w.Address(),
		SequenceNumber: w.sequence,
		Payload:        payload,
	}
	rawBytes, err := EncodeRawTransaction(raw)
	if err != nil {
		return PendingTransaction{}, err
	}

	signed := SignedTransaction{
		Raw:       rawBytes,
		PublicKey: w.priv.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(w.priv, rawBytes),
	}
	hash, err := w.node.SubmitTransaction(ctx, signed)
	if err != nil {
		return PendingTransaction{}, err
	}
	w.sequence++
	return PendingTransaction{Hash: hash}, nil
}

// ---------------------------------------------------------------------------
// Keystore
// ---------------------------------------------------------------------------

// Keystore file layout: the private key is sealed with chacha20poly1305 under
// an argon2id-derived key.
type keystoreFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ErrKeystorePassphrase is returned when a keystore cannot be opened with the
// given passphrase.
var ErrKeystorePassphrase = errors.New("wrong keystore passphrase")

func deriveKeystoreKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// SaveKeystore writes the wallet's private key to path, encrypted with the
// passphrase. The file is created with owner-only permissions.
func (w *Wallet) SaveKeystore(path, passphrase string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keystore salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKeystoreKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("keystore cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keystore nonce: %w", err)
	}

	data, err := json.Marshal(keystoreFile{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, w.priv.Seed(), nil),
	})
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keystore dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

// LoadKeystore opens the keystore at path with the passphrase and returns a
// wallet submitting through node.
func LoadKeystore(path, passphrase string, node Node) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKeystoreKey(passphrase, ks.Salt))
	if err != nil {
		return nil, fmt.Errorf("keystore cipher: %w", err)
	}
	seed, err := aead.Open(nil, ks.Nonce, ks.Ciphertext, nil)
	if err != nil {
		return nil, ErrKeystorePassphrase
	}
	return WalletFromKey(ed25519.NewKeyFromSeed(seed), node), nil
}
