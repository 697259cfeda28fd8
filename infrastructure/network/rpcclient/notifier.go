package rpcclient

import (
	"context"
	"fmt"
	"time"

	"github.com/IgraLabs/kaswallet/app/appmessage"
)

const defaultUTXOChangePollInterval = 5 * time.Second

// NotifyUTXOsChanged implements the sync engine's change-subscription
// capability. The HTTP transport has no server push, so the subscription is
// emulated: a background poller diffs the addresses' UTXO set and invokes
// onChanged whenever entries were added or removed. The poller stops when
// the client is closed.
func (c *Client) NotifyUTXOsChanged(addresses []string, onChanged func()) error {
	seen, err := c.fetchUTXOsByOutpoint(context.Background(), addresses)
	if err != nil {
		return err
	}
	spawn("Client.pollUTXOChanges", func() {
		c.pollUTXOChanges(addresses, seen, onChanged)
	})
	return nil
}

func (c *Client) pollUTXOChanges(addresses []string,
	seen map[string]*appmessage.UTXOsByAddressesEntry, onChanged func()) {

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
		}

		current, err := c.fetchUTXOsByOutpoint(context.Background(), addresses)
		if err != nil {
			log.Debugf("UTXO change poll failed, will retry: %s", err)
			continue
		}
		notification := diffUTXOSets(seen, current)
		if len(notification.Added) == 0 && len(notification.Removed) == 0 {
			continue
		}
		log.Debugf("UTXO set of %d monitored addresses changed: %d added, %d removed",
			len(addresses), len(notification.Added), len(notification.Removed))
		seen = current
		onChanged()
	}
}

func (c *Client) fetchUTXOsByOutpoint(ctx context.Context, addresses []string) (
	map[string]*appmessage.UTXOsByAddressesEntry, error) {

	entries, err := c.GetUTXOsByAddresses(ctx, addresses)
	if err != nil {
		return nil, err
	}
	byOutpoint := make(map[string]*appmessage.UTXOsByAddressesEntry, len(entries))
	for _, entry := range entries {
		if entry.Outpoint == nil {
			continue
		}
		key := fmt.Sprintf("%s:%d", entry.Outpoint.TransactionID, entry.Outpoint.Index)
		byOutpoint[key] = entry
	}
	return byOutpoint, nil
}

func diffUTXOSets(before, after map[string]*appmessage.UTXOsByAddressesEntry) *appmessage.UTXOsChangedNotification {
	notification := &appmessage.UTXOsChangedNotification{}
	for key, entry := range after {
		if _, ok := before[key]; !ok {
			notification.Added = append(notification.Added, entry)
		}
	}
	for key, entry := range before {
		if _, ok := after[key]; !ok {
			notification.Removed = append(notification.Removed, entry)
		}
	}
	return notification
}
