package main

import (
	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/util/bech32"
)

// Address version bytes, matching the address encoding of the network.
const (
	pubKeyAddrID      = 0x00
	pubKeyECDSAAddrID = 0x01
	scriptHashAddrID  = 0x08
)

// Script opcodes the standard templates use.
const (
	opData32        = 0x20
	opData33        = 0x21
	opEqual         = 0x87
	opBlake2b       = 0xaa
	opCheckSigECDSA = 0xab
	opCheckSig      = 0xac
)

// payToAddressScripter builds the standard script for an address string,
// rejecting addresses from other networks.
type payToAddressScripter struct {
	prefix string
}

func newPayToAddressScripter(params *dagconfig.Params) payToAddressScripter {
	return payToAddressScripter{prefix: params.Prefix}
}

// PayToAddressScript implements txbuilder.AddressScripter.
func (s payToAddressScripter) PayToAddressScript(address string) (*model.ScriptPublicKey, error) {
	prefix, payload, version, err := bech32.Decode(address)
	if err != nil {
		return nil, err
	}
	if prefix != s.prefix {
		return nil, errors.Errorf("address %s is for prefix %s, expected %s", address, prefix, s.prefix)
	}

	switch version {
	case pubKeyAddrID:
		if len(payload) != 32 {
			return nil, errors.Errorf("address %s carries a %d-byte public key, expected 32", address, len(payload))
		}
		script := make([]byte, 0, 34)
		script = append(script, opData32)
		script = append(script, payload...)
		script = append(script, opCheckSig)
		return &model.ScriptPublicKey{Script: script, Version: 0}, nil

	case pubKeyECDSAAddrID:
		if len(payload) != 33 {
			return nil, errors.Errorf("address %s carries a %d-byte public key, expected 33", address, len(payload))
		}
		script := make([]byte, 0, 35)
		script = append(script, opData33)
		script = append(script, payload...)
		script = append(script, opCheckSigECDSA)
		return &model.ScriptPublicKey{Script: script, Version: 0}, nil

	case scriptHashAddrID:
		if len(payload) != 32 {
			return nil, errors.Errorf("address %s carries a %d-byte script hash, expected 32", address, len(payload))
		}
		script := make([]byte, 0, 36)
		script = append(script, opBlake2b, opData32)
		script = append(script, payload...)
		script = append(script, opEqual)
		return &model.ScriptPublicKey{Script: script, Version: 0}, nil
	}
	return nil, errors.Errorf("address %s has the unknown version byte %d", address, version)
}
