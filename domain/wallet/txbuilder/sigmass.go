package txbuilder

import (
	"github.com/kaspanet/go-secp256k1"
)

// SignatureMassEstimator predicts the serialized size of signature scripts
// before any signature exists. The prediction only needs to be an upper
// bound that is tight enough for fee and split estimation.
type SignatureMassEstimator interface {
	// SignatureScriptSize returns the expected byte length of a signature
	// script carrying the given number of signatures.
	SignatureScriptSize(signatureCount uint32) uint64
}

// Per signature: one push opcode, the serialized signature, one sighash-type
// byte.
const perSignatureOverhead = 2

// SchnorrSignatureMassEstimator sizes schnorr signature scripts.
type SchnorrSignatureMassEstimator struct{}

// SignatureScriptSize implements SignatureMassEstimator.
func (SchnorrSignatureMassEstimator) SignatureScriptSize(signatureCount uint32) uint64 {
	return uint64(signatureCount) * (secp256k1.SerializedSchnorrSignatureSize + perSignatureOverhead)
}

// ECDSASignatureMassEstimator sizes ECDSA signature scripts.
type ECDSASignatureMassEstimator struct{}

// SignatureScriptSize implements SignatureMassEstimator.
func (ECDSASignatureMassEstimator) SignatureScriptSize(signatureCount uint32) uint64 {
	return uint64(signatureCount) * (secp256k1.SerializedECDSASignatureSize + perSignatureOverhead)
}

// EstimatorForScheme returns the estimator matching the signing scheme the
// wallet's keys use.
func EstimatorForScheme(ecdsa bool) SignatureMassEstimator {
	if ecdsa {
		return ECDSASignatureMassEstimator{}
	}
	return SchnorrSignatureMassEstimator{}
}
