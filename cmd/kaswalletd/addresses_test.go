package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

func writeAddressesFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatalf("writing addresses file: %+v", err)
	}
	return path
}

func TestLoadAddressesFile(t *testing.T) {
	path := writeAddressesFile(t, `
# exported addresses
m/0/0/0 kaspa:external-zero
m/0/0/1 kaspa:external-one
m/0/1/0 kaspa:internal-zero
m/1/0/0 kaspa:other-cosigner
`)
	source, err := loadAddressesFile(path)
	if err != nil {
		t.Fatalf("loadAddressesFile failed: %+v", err)
	}

	address, err := source.Address(model.NewWalletAddress(1, 0, model.ExternalKeychain))
	if err != nil {
		t.Fatalf("Address failed: %+v", err)
	}
	if address != "kaspa:external-one" {
		t.Fatalf("Address = %s, want kaspa:external-one", address)
	}

	_, err = source.Address(model.NewWalletAddress(2, 0, model.ExternalKeychain))
	if err == nil {
		t.Fatal("Address returned an address the file does not hold")
	}

	counts := source.indexCounts(0)
	if counts[model.ExternalKeychain] != 2 || counts[model.InternalKeychain] != 1 {
		t.Fatalf("indexCounts(0) = %v, want external 2 and internal 1", counts)
	}
	counts = source.indexCounts(1)
	if counts[model.ExternalKeychain] != 1 || counts[model.InternalKeychain] != 0 {
		t.Fatalf("indexCounts(1) = %v, want external 1 and internal 0", counts)
	}
}

func TestLoadAddressesFileRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"empty", "# nothing here\n"},
		{"duplicatePath", "m/0/0/0 kaspa:one\nm/0/0/0 kaspa:two\n"},
		{"missingAddress", "m/0/0/0\n"},
		{"badKeychain", "m/0/7/0 kaspa:addr\n"},
		{"badRoot", "x/0/0/0 kaspa:addr\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeAddressesFile(t, test.contents)
			_, err := loadAddressesFile(path)
			if err == nil {
				t.Fatalf("loadAddressesFile accepted %q", test.contents)
			}
		})
	}
}
