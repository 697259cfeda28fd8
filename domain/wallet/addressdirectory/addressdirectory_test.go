package addressdirectory

import (
	"fmt"
	"testing"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// fakeSource derives printable placeholder addresses, good enough for
// directory bookkeeping tests.
type fakeSource struct {
	failing bool
}

func (fs *fakeSource) Address(walletAddress *model.WalletAddress) (string, error) {
	if fs.failing {
		return "", fmt.Errorf("derivation unavailable")
	}
	return fmt.Sprintf("kaspa:fake-%d-%d-%d",
		walletAddress.Keychain, walletAddress.CosignerIndex, walletAddress.Index), nil
}

func TestExtendBumpsVersionWithMutation(t *testing.T) {
	directory := New(&fakeSource{}, 0)
	if directory.Version() != 0 {
		t.Fatalf("fresh directory has version %d, want 0", directory.Version())
	}

	err := directory.Extend(model.ExternalKeychain, 3)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}

	monitored, version := directory.MonitoredAddresses()
	if len(monitored) != 3 {
		t.Fatalf("monitoring %d addresses, want 3", len(monitored))
	}
	if version != 1 {
		t.Fatalf("version is %d after one mutation, want 1", version)
	}

	// A reader holding the pre-extension version must never see the
	// post-extension address list under that version. Since accessors
	// return (value, version) from one critical section, it suffices
	// that the version moved together with the list.
	err = directory.Extend(model.InternalKeychain, 1)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	monitoredAfter, versionAfter := directory.MonitoredAddresses()
	if versionAfter == version {
		t.Fatalf("version did not move with the second mutation")
	}
	if len(monitoredAfter) != 4 {
		t.Fatalf("monitoring %d addresses after second extend, want 4", len(monitoredAfter))
	}
}

func TestCachedAccessorsReturnSameValueForSameVersion(t *testing.T) {
	directory := New(&fakeSource{}, 0)
	err := directory.Extend(model.ExternalKeychain, 2)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}

	firstMap, firstVersion := directory.AddressOwnerMap()
	secondMap, secondVersion := directory.AddressOwnerMap()
	if firstVersion != secondVersion {
		t.Fatalf("version moved without a mutation: %d -> %d", firstVersion, secondVersion)
	}
	// Unchanged version must reuse the cached map, not rebuild it.
	if fmt.Sprintf("%p", firstMap) != fmt.Sprintf("%p", secondMap) {
		t.Fatalf("owner map was rebuilt for an unchanged version")
	}

	err = directory.Extend(model.ExternalKeychain, 1)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	thirdMap, thirdVersion := directory.AddressOwnerMap()
	if thirdVersion == firstVersion {
		t.Fatalf("version did not move with a mutation")
	}
	if len(thirdMap) != 3 {
		t.Fatalf("owner map has %d entries after extension, want 3", len(thirdMap))
	}
}

func TestMarkUsedMovesFrontierAndVersion(t *testing.T) {
	directory := New(&fakeSource{}, 0)
	err := directory.Extend(model.ExternalKeychain, 5)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	versionBefore := directory.Version()

	directory.MarkUsed([]string{"kaspa:fake-0-0-2"})
	if directory.Version() == versionBefore {
		t.Fatalf("MarkUsed of a monitored address did not bump the version")
	}

	versionBefore = directory.Version()
	directory.MarkUsed([]string{"kaspa:unknown"})
	if directory.Version() != versionBefore {
		t.Fatalf("MarkUsed of an unknown address bumped the version")
	}

	// Lookahead counts from the used frontier (index 3 onward).
	err = directory.EnsureLookahead(4)
	if err != nil {
		t.Fatalf("EnsureLookahead failed: %+v", err)
	}
	monitored, _ := directory.MonitoredAddresses()
	externalCount := 0
	ownerMap, _ := directory.AddressOwnerMap()
	for _, addressString := range monitored {
		if ownerMap[addressString].Keychain == model.ExternalKeychain {
			externalCount++
		}
	}
	if externalCount != 7 {
		t.Fatalf("external keychain has %d addresses after lookahead, want 7", externalCount)
	}
}

func TestChangeAddressPolicies(t *testing.T) {
	directory := New(&fakeSource{}, 0)

	// A restriction pins change to the restricted set.
	err := directory.Extend(model.ExternalKeychain, 1)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	restricted := model.NewWalletAddress(0, 0, model.ExternalKeychain)
	addressString, owner, err := directory.ChangeAddress(false, []*model.WalletAddress{restricted})
	if err != nil {
		t.Fatalf("ChangeAddress with restriction failed: %+v", err)
	}
	if *owner != *restricted || addressString != "kaspa:fake-0-0-0" {
		t.Fatalf("restricted change went to %s (%s)", addressString, owner)
	}

	// useExisting reuses internal index 0 across calls.
	firstString, firstOwner, err := directory.ChangeAddress(true, nil)
	if err != nil {
		t.Fatalf("ChangeAddress useExisting failed: %+v", err)
	}
	secondString, _, err := directory.ChangeAddress(true, nil)
	if err != nil {
		t.Fatalf("ChangeAddress useExisting failed: %+v", err)
	}
	if firstString != secondString {
		t.Fatalf("useExisting returned different addresses: %s, %s", firstString, secondString)
	}
	if firstOwner.Keychain != model.InternalKeychain || firstOwner.Index != 0 {
		t.Fatalf("useExisting change owner is %s, want internal index 0", firstOwner)
	}

	// The default policy advances the internal cursor every call.
	thirdString, thirdOwner, err := directory.ChangeAddress(false, nil)
	if err != nil {
		t.Fatalf("ChangeAddress failed: %+v", err)
	}
	fourthString, fourthOwner, err := directory.ChangeAddress(false, nil)
	if err != nil {
		t.Fatalf("ChangeAddress failed: %+v", err)
	}
	if thirdString == fourthString || thirdOwner.Index+1 != fourthOwner.Index {
		t.Fatalf("fresh change addresses did not advance: %s then %s", thirdString, fourthString)
	}
}

func TestExtendPropagatesDerivationFailure(t *testing.T) {
	directory := New(&fakeSource{failing: true}, 0)
	err := directory.Extend(model.ExternalKeychain, 1)
	if err == nil {
		t.Fatalf("Extend succeeded with a failing source")
	}
	if directory.Version() != 0 {
		t.Fatalf("failed Extend bumped the version")
	}
}
