package model

import "fmt"

// Keychain is a BIP44 keychain branch.
type Keychain uint8

// The two keychain branches of a wallet.
const (
	// ExternalKeychain is the branch used for receive addresses.
	ExternalKeychain Keychain = 0

	// InternalKeychain is the branch used for change addresses.
	InternalKeychain Keychain = 1
)

// Keychains lists both keychain branches.
var Keychains = []Keychain{ExternalKeychain, InternalKeychain}

// WalletAddress is the owner record of a monitored address: the derivation
// coordinates that produce it. It contains no key material. The zero-sized
// field set makes it usable as a map key.
type WalletAddress struct {
	Index         uint32
	CosignerIndex uint16
	Keychain      Keychain
}

// NewWalletAddress creates a new WalletAddress.
func NewWalletAddress(index uint32, cosignerIndex uint16, keychain Keychain) *WalletAddress {
	return &WalletAddress{Index: index, CosignerIndex: cosignerIndex, Keychain: keychain}
}

func (wa *WalletAddress) String() string {
	return fmt.Sprintf("m/%d/%d/%d", wa.CosignerIndex, wa.Keychain, wa.Index)
}
