package ledger

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletAddress(t *testing.T) {
	wallet, err := NewWallet(NewSimLedger())
	require.NoError(t, err)

	addr := wallet.Address()
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 2+64)
	// Derivation is a pure function of the key.
	assert.Equal(t, addr, wallet.Address())
}

func TestWalletRequiresConnection(t *testing.T) {
	ctx := context.Background()
	wallet, err := NewWallet(NewSimLedger())
	require.NoError(t, err)

	_, err = wallet.SignAndSubmit(ctx, EntryFunctionPayload{Function: "0x1::Library::init_library"})
	assert.ErrorIs(t, err, ErrAgentUnavailable)

	info, err := wallet.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), info.Address)

	require.NoError(t, wallet.Disconnect(ctx))
	_, err = wallet.SignAndSubmit(ctx, EntryFunctionPayload{Function: "0x1::Library::init_library"})
	assert.ErrorIs(t, err, ErrAgentUnavailable)
}

func TestWalletNetwork(t *testing.T) {
	ctx := context.Background()
	wallet, err := NewWallet(nil)
	require.NoError(t, err)

	network, err := wallet.Network(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultNetworkName, network.Name)

	wallet.SetNetworkName("devnet")
	network, _ = wallet.Network(ctx)
	assert.Equal(t, "devnet", network.Name)
}

func TestKeystoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "wallet.json")

	wallet, err := NewWallet(nil)
	require.NoError(t, err)
	require.NoError(t, wallet.SaveKeystore(path, "correct horse"))

	loaded, err := LoadKeystore(path, "correct horse", nil)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), loaded.Address())

	_, err = LoadKeystore(path, "wrong passphrase", nil)
	assert.ErrorIs(t, err, ErrKeystorePassphrase)

	_, err = LoadKeystore(filepath.Join(t.TempDir(), "nope.json"), "x", nil)
	assert.Error(t, err)
}

func TestSimLedgerRejectsTamperedSignature(t *testing.T) {
	ctx := context.Background()
	sim := NewSimLedger()
	wallet, err := NewWallet(sim)
	require.NoError(t, err)
	_, err = wallet.Connect(ctx)
	require.NoError(t, err)
	sim.Fund(wallet.Address(), 10)

	raw := RawTransaction{
		Sender:  wallet.Address(),
		Payload: EntryFunctionPayload{Function: "0x1::Library::init_library"},
	}
	rawBytes, err := EncodeRawTransaction(raw)
	require.NoError(t, err)

	_, err = sim.SubmitTransaction(ctx, SignedTransaction{
		Raw:       rawBytes,
		PublicKey: make([]byte, 32),
		Signature: make([]byte, 64),
	})
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "signature")
}

func TestSimLedgerChargesGas(t *testing.T) {
	ctx := context.Background()
	sim := NewSimLedger()
	wallet, err := NewWallet(sim)
	require.NoError(t, err)
	_, err = wallet.Connect(ctx)
	require.NoError(t, err)
	sim.Fund(wallet.Address(), 2)

	_, err = wallet.SignAndSubmit(ctx, EntryFunctionPayload{Function: "0x1::Library::init_library"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sim.Balance(wallet.Address()))
}

func TestWaitForUnknownTransaction(t *testing.T) {
	sim := NewSimLedger()
	err := sim.WaitForTransaction(context.Background(), "0xdeadbeef")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
}
