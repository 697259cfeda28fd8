package txmass

import (
	"testing"

	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

func testTransaction() *model.Transaction {
	return &model.Transaction{
		Version: 0,
		Inputs: []*model.TransactionInput{{
			PreviousOutpoint: model.Outpoint{Index: 0},
			Sequence:         0,
			SigOpCount:       1,
		}},
		Outputs: []*model.TransactionOutput{{
			Value:           1000,
			ScriptPublicKey: &model.ScriptPublicKey{Script: make([]byte, 34), Version: 0},
		}},
	}
}

func TestCalculateTransactionMassComponents(t *testing.T) {
	calculator := NewCalculatorFromParams(&dagconfig.MainnetParams)
	base := calculator.CalculateTransactionMass(testTransaction())
	if base == 0 {
		t.Fatal("mass of a one-input one-output transaction is zero")
	}

	// Signature script bytes count toward size mass only.
	signed := testTransaction()
	signed.Inputs[0].SignatureScript = make([]byte, 66)
	wantSigned := base + 66*dagconfig.MainnetParams.MassPerTxByte
	if got := calculator.CalculateTransactionMass(signed); got != wantSigned {
		t.Fatalf("mass with a 66-byte signature script = %d, want %d", got, wantSigned)
	}

	// Each signature operation carries its own mass.
	heavySigOps := testTransaction()
	heavySigOps.Inputs[0].SigOpCount = 3
	wantSigOps := base + 2*dagconfig.MainnetParams.MassPerSigOp
	if got := calculator.CalculateTransactionMass(heavySigOps); got != wantSigOps {
		t.Fatalf("mass with 3 sig ops = %d, want %d", got, wantSigOps)
	}

	// Script public key bytes are charged at both the size rate and the
	// script public key rate.
	widerScript := testTransaction()
	widerScript.Outputs[0].ScriptPublicKey.Script = make([]byte, 35)
	wantWider := base + dagconfig.MainnetParams.MassPerTxByte + dagconfig.MainnetParams.MassPerScriptPubKeyByte
	if got := calculator.CalculateTransactionMass(widerScript); got != wantWider {
		t.Fatalf("mass with one more script byte = %d, want %d", got, wantWider)
	}
}

func TestTransactionOutputEstimatedSerializedSize(t *testing.T) {
	output := &model.TransactionOutput{
		Value:           1000,
		ScriptPublicKey: &model.ScriptPublicKey{Script: make([]byte, 34), Version: 0},
	}
	// value + version + script length prefix + script bytes.
	want := uint64(8 + 2 + 8 + 34)
	if got := TransactionOutputEstimatedSerializedSize(output); got != want {
		t.Fatalf("TransactionOutputEstimatedSerializedSize = %d, want %d", got, want)
	}
}
