package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const entryFunctionPayloadType = "entry_function_payload"

// EntryFunctionPayload addresses one entry point of the remote program.
// Arguments are passed as their canonical string encodings, matching what a
// wallet bridge accepts.
type EntryFunctionPayload struct {
	Type          string   `cbor:"type"`
	Function      string   `cbor:"function"`
	TypeArguments []string `cbor:"type_arguments"`
	Arguments     []string `cbor:"arguments"`
}

// ViewRequest addresses one read-only view function of the remote program.
type ViewRequest struct {
	Function  string   `cbor:"function"`
	Arguments []string `cbor:"arguments"`
}

// RawTransaction is the unsigned transaction a signing agent commits to.
type RawTransaction struct {
	Sender         string               `cbor:"sender"`
	SequenceNumber uint64               `cbor:"sequence_number"`
	Payload        EntryFunctionPayload `cbor:"payload"`
}

// SignedTransaction is a raw transaction plus the authorizing signature,
// ready for submission to a node.
type SignedTransaction struct {
	Raw       []byte `cbor:"raw_txn"`
	PublicKey []byte `cbor:"public_key"`
	Signature []byte `cbor:"signature"`
}

// EncodeRawTransaction produces the canonical signing bytes of a raw
// transaction.
func EncodeRawTransaction(raw RawTransaction) ([]byte, error) {
	data, err := cbor.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode raw transaction: %w", err)
	}
	return data, nil
}

// DecodeRawTransaction is the inverse of EncodeRawTransaction.
func DecodeRawTransaction(data []byte) (RawTransaction, error) {
	var raw RawTransaction
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return RawTransaction{}, fmt.Errorf("decode raw transaction: %w", err)
	}
	return raw, nil
}
