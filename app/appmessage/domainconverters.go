package appmessage

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

func formatMessage(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

// ErrMalformedEntry marks a wire entry that is missing required sub-fields.
// Sync cycles skip such entries instead of aborting.
var ErrMalformedEntry = errors.New("malformed RPC entry")

// RPCOutpointToOutpoint converts an RPCOutpoint to a model Outpoint.
func RPCOutpointToOutpoint(rpcOutpoint *RPCOutpoint) (*model.Outpoint, error) {
	if rpcOutpoint == nil {
		return nil, errors.Wrap(ErrMalformedEntry, "missing outpoint")
	}
	transactionID, err := model.NewTransactionIDFromString(rpcOutpoint.TransactionID)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEntry, "bad outpoint transaction ID: %s", err)
	}
	outpoint := model.NewOutpoint(*transactionID, rpcOutpoint.Index)
	return &outpoint, nil
}

// RPCUTXOEntryToUTXOEntry converts an RPCUTXOEntry to a model UTXOEntry.
func RPCUTXOEntryToUTXOEntry(rpcEntry *RPCUTXOEntry) (*model.UTXOEntry, error) {
	if rpcEntry == nil || rpcEntry.ScriptPublicKey == nil {
		return nil, errors.Wrap(ErrMalformedEntry, "missing UTXO entry fields")
	}
	script, err := hex.DecodeString(rpcEntry.ScriptPublicKey.Script)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEntry, "bad scriptPublicKey hex: %s", err)
	}
	return model.NewUTXOEntry(
		rpcEntry.Amount,
		&model.ScriptPublicKey{Script: script, Version: rpcEntry.ScriptPublicKey.Version},
		rpcEntry.BlockDAAScore,
		rpcEntry.IsCoinbase,
	), nil
}

// RPCTransactionID extracts and parses the node-computed transaction ID out
// of a wire transaction's verbose data.
func RPCTransactionID(rpcTransaction *RPCTransaction) (*model.TransactionID, error) {
	if rpcTransaction.VerboseData == nil {
		return nil, errors.Wrap(ErrMalformedEntry, "missing transaction verbose data")
	}
	transactionID, err := model.NewTransactionIDFromString(rpcTransaction.VerboseData.TransactionID)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEntry, "bad transaction ID: %s", err)
	}
	return transactionID, nil
}

// DomainTransactionToRPCTransaction converts a model Transaction to its wire
// representation for submission.
func DomainTransactionToRPCTransaction(transaction *model.Transaction) *RPCTransaction {
	inputs := make([]*RPCTransactionInput, len(transaction.Inputs))
	for i, input := range transaction.Inputs {
		inputs[i] = &RPCTransactionInput{
			PreviousOutpoint: &RPCOutpoint{
				TransactionID: input.PreviousOutpoint.TransactionID.String(),
				Index:         input.PreviousOutpoint.Index,
			},
			SignatureScript: hex.EncodeToString(input.SignatureScript),
			Sequence:        input.Sequence,
			SigOpCount:      input.SigOpCount,
		}
	}
	outputs := make([]*RPCTransactionOutput, len(transaction.Outputs))
	for i, output := range transaction.Outputs {
		outputs[i] = &RPCTransactionOutput{
			Amount: output.Value,
			ScriptPublicKey: &RPCScriptPublicKey{
				Script:  hex.EncodeToString(output.ScriptPublicKey.Script),
				Version: output.ScriptPublicKey.Version,
			},
		}
	}
	return &RPCTransaction{
		Version:      transaction.Version,
		Inputs:       inputs,
		Outputs:      outputs,
		LockTime:     transaction.LockTime,
		SubnetworkID: SubnetworkIDNative,
		Gas:          0,
		Payload:      hex.EncodeToString(transaction.Payload),
	}
}

// RPCTransactionToDomainTransaction converts a wire transaction back to the
// domain model, the inverse of DomainTransactionToRPCTransaction.
func RPCTransactionToDomainTransaction(rpcTransaction *RPCTransaction) (*model.Transaction, error) {
	inputs := make([]*model.TransactionInput, len(rpcTransaction.Inputs))
	for i, input := range rpcTransaction.Inputs {
		outpoint, err := RPCOutpointToOutpoint(input.PreviousOutpoint)
		if err != nil {
			return nil, err
		}
		signatureScript, err := hex.DecodeString(input.SignatureScript)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedEntry, "bad signature script hex: %s", err)
		}
		inputs[i] = &model.TransactionInput{
			PreviousOutpoint: *outpoint,
			SignatureScript:  signatureScript,
			Sequence:         input.Sequence,
			SigOpCount:       input.SigOpCount,
		}
	}
	outputs := make([]*model.TransactionOutput, len(rpcTransaction.Outputs))
	for i, output := range rpcTransaction.Outputs {
		if output.ScriptPublicKey == nil {
			return nil, errors.Wrap(ErrMalformedEntry, "missing output scriptPublicKey")
		}
		script, err := hex.DecodeString(output.ScriptPublicKey.Script)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedEntry, "bad scriptPublicKey hex: %s", err)
		}
		outputs[i] = &model.TransactionOutput{
			Value:           output.Amount,
			ScriptPublicKey: &model.ScriptPublicKey{Script: script, Version: output.ScriptPublicKey.Version},
		}
	}
	payload, err := hex.DecodeString(rpcTransaction.Payload)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEntry, "bad payload hex: %s", err)
	}
	return &model.Transaction{
		Version:  rpcTransaction.Version,
		Inputs:   inputs,
		Outputs:  outputs,
		LockTime: rpcTransaction.LockTime,
		Payload:  payload,
	}, nil
}

// DomainUTXOEntryToRPCUTXOEntry converts a model UTXOEntry to its wire
// representation.
func DomainUTXOEntryToRPCUTXOEntry(entry *model.UTXOEntry) *RPCUTXOEntry {
	return &RPCUTXOEntry{
		Amount: entry.Amount,
		ScriptPublicKey: &RPCScriptPublicKey{
			Script:  hex.EncodeToString(entry.ScriptPublicKey.Script),
			Version: entry.ScriptPublicKey.Version,
		},
		BlockDAAScore: entry.BlockDAAScore,
		IsCoinbase:    entry.IsCoinbase,
	}
}
