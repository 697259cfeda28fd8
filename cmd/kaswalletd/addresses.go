package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// fileAddressSource serves pre-derived addresses out of a file, keeping key
// material and derivation arithmetic outside the daemon. Each line maps one
// derivation record to its address string:
//
//	m/<cosignerIndex>/<keychain>/<index> <address>
//
// Blank lines and lines starting with # are skipped.
type fileAddressSource struct {
	addresses map[model.WalletAddress]string
}

func loadAddressesFile(path string) (*fileAddressSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening addresses file %s", path)
	}
	defer file.Close()

	source := &fileAddressSource{addresses: make(map[model.WalletAddress]string)}
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("%s:%d: expected `<path> <address>`", path, lineNumber)
		}
		walletAddress, err := parseDerivationPath(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, lineNumber)
		}
		if _, exists := source.addresses[*walletAddress]; exists {
			return nil, errors.Errorf("%s:%d: duplicate derivation path %s", path, lineNumber, walletAddress)
		}
		source.addresses[*walletAddress] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading addresses file %s", path)
	}
	if len(source.addresses) == 0 {
		return nil, errors.Errorf("addresses file %s holds no addresses", path)
	}
	return source, nil
}

func parseDerivationPath(path string) (*model.WalletAddress, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "m" {
		return nil, errors.Errorf("bad derivation path %s", path)
	}
	cosignerIndex, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return nil, errors.Wrapf(err, "bad cosigner index in %s", path)
	}
	keychain, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil || (keychain != uint64(model.ExternalKeychain) && keychain != uint64(model.InternalKeychain)) {
		return nil, errors.Errorf("bad keychain in %s", path)
	}
	index, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "bad index in %s", path)
	}
	return model.NewWalletAddress(uint32(index), uint16(cosignerIndex), model.Keychain(keychain)), nil
}

// Address implements addressdirectory.AddressSource.
func (fas *fileAddressSource) Address(walletAddress *model.WalletAddress) (string, error) {
	address, ok := fas.addresses[*walletAddress]
	if !ok {
		return "", errors.Errorf("address %s is not in the addresses file; re-export it with more addresses",
			walletAddress)
	}
	return address, nil
}

// indexCounts returns how many consecutive addresses starting at index 0 the
// file holds per keychain for the given cosigner. The directory is extended
// by these counts at startup.
func (fas *fileAddressSource) indexCounts(cosignerIndex uint16) map[model.Keychain]uint32 {
	counts := make(map[model.Keychain]uint32, len(model.Keychains))
	for _, keychain := range model.Keychains {
		count := uint32(0)
		for {
			_, ok := fas.addresses[model.WalletAddress{Index: count, CosignerIndex: cosignerIndex, Keychain: keychain}]
			if !ok {
				break
			}
			count++
		}
		counts[keychain] = count
	}
	return counts
}
