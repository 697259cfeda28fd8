// Package addressdirectory maintains the set of addresses the wallet
// monitors and the reverse mapping from address strings to their derivation
// records. Key derivation itself is delegated to an AddressSource; the
// directory only tracks which derivation indexes are in play.
package addressdirectory

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// AddressSource derives the string form of a wallet address record. The
// wallet daemon does not hold keys; implementations typically wrap an
// extended public key.
type AddressSource interface {
	Address(walletAddress *model.WalletAddress) (string, error)
}

// Directory is the registry of monitored addresses. All accessors are safe
// for concurrent use. Mutations advance a version counter inside the same
// critical section, so a (value, version) pair read from the directory is
// always internally consistent.
type Directory struct {
	mutex  sync.Mutex
	source AddressSource

	cosignerIndex   uint16
	stringByAddress map[model.WalletAddress]string
	addressByString map[string]*model.WalletAddress
	nextIndex       map[model.Keychain]uint32
	lastUsedIndex   map[model.Keychain]uint32

	version uint64

	cachedMonitored        []string
	cachedMonitoredVersion uint64
	cachedOwnerMap         map[string]*model.WalletAddress
	cachedOwnerMapVersion  uint64
}

// New creates an empty Directory deriving through the given source on behalf
// of the given cosigner.
func New(source AddressSource, cosignerIndex uint16) *Directory {
	return &Directory{
		source:          source,
		cosignerIndex:   cosignerIndex,
		stringByAddress: make(map[model.WalletAddress]string),
		addressByString: make(map[string]*model.WalletAddress),
		nextIndex:       make(map[model.Keychain]uint32),
		lastUsedIndex:   make(map[model.Keychain]uint32),
	}
}

// Extend derives and registers count fresh addresses on the given keychain,
// starting at the current derivation frontier.
func (d *Directory) Extend(keychain model.Keychain, count uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.extend(keychain, count)
}

// EnsureLookahead extends each keychain so that at least lookahead addresses
// beyond the last used index are monitored.
func (d *Directory) EnsureLookahead(lookahead uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, keychain := range model.Keychains {
		target := d.lastUsedIndex[keychain] + lookahead
		if target > d.nextIndex[keychain] {
			err := d.extend(keychain, target-d.nextIndex[keychain])
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// extend must be called with the mutex held. Derivation happens before any
// map insert, so a failing source leaves the directory untouched.
func (d *Directory) extend(keychain model.Keychain, count uint32) error {
	start := d.nextIndex[keychain]
	derived := make(map[model.WalletAddress]string, count)
	for index := start; index < start+count; index++ {
		walletAddress := model.NewWalletAddress(index, d.cosignerIndex, keychain)
		addressString, err := d.source.Address(walletAddress)
		if err != nil {
			return errors.Wrapf(err, "deriving address %s", walletAddress)
		}
		derived[*walletAddress] = addressString
	}
	for walletAddress, addressString := range derived {
		walletAddress := walletAddress
		d.stringByAddress[walletAddress] = addressString
		d.addressByString[addressString] = &walletAddress
	}
	d.nextIndex[keychain] = start + count
	d.version++
	log.Debugf("Extended keychain %d to index %d (version %d)", keychain, d.nextIndex[keychain], d.version)
	return nil
}

// MarkUsed records that the given monitored addresses were seen on-chain,
// moving the used frontier of their keychains forward. Unknown addresses are
// ignored.
func (d *Directory) MarkUsed(addressStrings []string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	moved := false
	for _, addressString := range addressStrings {
		walletAddress, ok := d.addressByString[addressString]
		if !ok {
			continue
		}
		if walletAddress.Index >= d.lastUsedIndex[walletAddress.Keychain] {
			d.lastUsedIndex[walletAddress.Keychain] = walletAddress.Index + 1
			moved = true
		}
	}
	if moved {
		d.version++
	}
}

// NewChangeAddress advances the internal keychain cursor by one and returns
// the fresh address.
func (d *Directory) NewChangeAddress() (string, *model.WalletAddress, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	index := d.nextIndex[model.InternalKeychain]
	err := d.extend(model.InternalKeychain, 1)
	if err != nil {
		return "", nil, err
	}
	walletAddress := model.NewWalletAddress(index, d.cosignerIndex, model.InternalKeychain)
	return d.stringByAddress[*walletAddress], walletAddress, nil
}

// ChangeAddress picks the change destination for a transaction build. With a
// fromAddresses restriction the first restricted address is reused, keeping
// funds inside the restricted set. With useExisting the first internal
// address is reused instead of advancing the cursor.
func (d *Directory) ChangeAddress(useExisting bool, fromAddresses []*model.WalletAddress) (string, *model.WalletAddress, error) {
	if len(fromAddresses) > 0 {
		walletAddress := fromAddresses[0]
		addressString, ok := d.String(walletAddress)
		if !ok {
			return "", nil, errors.Errorf("restricted change address %s is not monitored", walletAddress)
		}
		return addressString, walletAddress, nil
	}
	if !useExisting {
		return d.NewChangeAddress()
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.nextIndex[model.InternalKeychain] == 0 {
		err := d.extend(model.InternalKeychain, 1)
		if err != nil {
			return "", nil, err
		}
	}
	walletAddress := model.NewWalletAddress(0, d.cosignerIndex, model.InternalKeychain)
	return d.stringByAddress[*walletAddress], walletAddress, nil
}

// String returns the string form of a monitored address record.
func (d *Directory) String(walletAddress *model.WalletAddress) (string, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	addressString, ok := d.stringByAddress[*walletAddress]
	return addressString, ok
}

// Version returns the current directory version.
func (d *Directory) Version() uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.version
}

// MonitoredAddresses returns every monitored address string together with the
// directory version the list reflects. The slice is cached and shared; callers
// must not mutate it.
func (d *Directory) MonitoredAddresses() ([]string, uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.cachedMonitored == nil || d.cachedMonitoredVersion != d.version {
		monitored := make([]string, 0, len(d.addressByString))
		for addressString := range d.addressByString {
			monitored = append(monitored, addressString)
		}
		d.cachedMonitored = monitored
		d.cachedMonitoredVersion = d.version
	}
	return d.cachedMonitored, d.cachedMonitoredVersion
}

// AddressOwnerMap returns the mapping from address strings to derivation
// records together with the directory version it reflects. The map is cached
// and shared; callers must not mutate it.
func (d *Directory) AddressOwnerMap() (map[string]*model.WalletAddress, uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.cachedOwnerMap == nil || d.cachedOwnerMapVersion != d.version {
		ownerMap := make(map[string]*model.WalletAddress, len(d.addressByString))
		for addressString, walletAddress := range d.addressByString {
			ownerMap[addressString] = walletAddress
		}
		d.cachedOwnerMap = ownerMap
		d.cachedOwnerMapVersion = d.version
	}
	return d.cachedOwnerMap, d.cachedOwnerMapVersion
}
