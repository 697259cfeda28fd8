// Package rpcclient talks to the node's wallet-facing JSON-RPC endpoint and
// exposes the capabilities the wallet domain consumes: UTXO and mempool
// queries, DAG info, fee estimation and transaction submission.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/app/appmessage"
)

const defaultTimeout = 30 * time.Second

// Client is a JSON-RPC client over HTTP. Safe for concurrent use.
type Client struct {
	requestID  uint64
	endpoint   string
	httpClient *http.Client

	pollInterval time.Duration
	quit         chan struct{}
	closeOnce    sync.Once
}

func newClient(endpoint string, httpClient *http.Client) *Client {
	return &Client{
		endpoint:     endpoint,
		httpClient:   httpClient,
		pollInterval: defaultUTXOChangePollInterval,
		quit:         make(chan struct{}),
	}
}

// Connect creates a Client against the given node RPC address and verifies
// connectivity with a getBlockDagInfo round trip.
func Connect(ctx context.Context, rpcServer string) (*Client, error) {
	client := newClient("http://"+rpcServer, &http.Client{Timeout: defaultTimeout})
	dagInfo, err := client.GetBlockDAGInfo(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", rpcServer)
	}
	log.Infof("Connected to %s (network %s, virtual DAA score %d)",
		rpcServer, dagInfo.NetworkName, dagInfo.VirtualDAAScore)
	return client, nil
}

// Close stops the client's background pollers. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

type request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *responseError  `json:"error"`
}

type responseError struct {
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(&request{
		ID:     atomic.AddUint64(&c.requestID, 1),
		Method: method,
		Params: params,
	})
	if err != nil {
		return errors.Wrapf(err, "marshalling %s request", method)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "building %s request", method)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return errors.Wrapf(err, "calling %s", method)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return errors.Errorf("calling %s: HTTP status %s", method, httpResponse.Status)
	}
	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s response", method)
	}

	var rpcResponse response
	err = json.Unmarshal(responseBody, &rpcResponse)
	if err != nil {
		return errors.Wrapf(err, "unmarshalling %s response", method)
	}
	if rpcResponse.Error != nil {
		return errors.Wrapf(appmessage.RPCErrorf("%s", rpcResponse.Error.Message), "calling %s", method)
	}
	if result == nil {
		return nil
	}
	err = json.Unmarshal(rpcResponse.Result, result)
	if err != nil {
		return errors.Wrapf(err, "unmarshalling %s result", method)
	}
	return nil
}

// GetUTXOsByAddresses fetches the unspent outputs of the given addresses.
func (c *Client) GetUTXOsByAddresses(ctx context.Context, addresses []string) (
	[]*appmessage.UTXOsByAddressesEntry, error) {

	var result struct {
		Entries []*appmessage.UTXOsByAddressesEntry `json:"entries"`
	}
	err := c.call(ctx, "getUtxosByAddresses", struct {
		Addresses []string `json:"addresses"`
	}{addresses}, &result)
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// GetMempoolEntriesByAddresses fetches the mempool entries sending from or
// paying to the given addresses. Orphan transactions are left out; their
// inputs may never materialize.
func (c *Client) GetMempoolEntriesByAddresses(ctx context.Context, addresses []string) (
	[]*appmessage.MempoolEntryByAddress, error) {

	var result struct {
		Entries []*appmessage.MempoolEntryByAddress `json:"entries"`
	}
	err := c.call(ctx, "getMempoolEntriesByAddresses", struct {
		Addresses             []string `json:"addresses"`
		IncludeOrphanPool     bool     `json:"includeOrphanPool"`
		FilterTransactionPool bool     `json:"filterTransactionPool"`
	}{addresses, false, false}, &result)
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// GetBlockDAGInfo fetches the node's DAG state.
func (c *Client) GetBlockDAGInfo(ctx context.Context) (*appmessage.BlockDAGInfo, error) {
	result := &appmessage.BlockDAGInfo{}
	err := c.call(ctx, "getBlockDagInfo", struct{}{}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetVirtualDAAScore fetches the DAA score of the node's virtual block.
func (c *Client) GetVirtualDAAScore(ctx context.Context) (uint64, error) {
	dagInfo, err := c.GetBlockDAGInfo(ctx)
	if err != nil {
		return 0, err
	}
	return dagInfo.VirtualDAAScore, nil
}

// GetFeeEstimate fetches the node's current fee-rate estimation.
func (c *Client) GetFeeEstimate(ctx context.Context) (*appmessage.RPCFeeEstimate, error) {
	var result struct {
		Estimate *appmessage.RPCFeeEstimate `json:"estimate"`
	}
	err := c.call(ctx, "getFeeEstimate", struct{}{}, &result)
	if err != nil {
		return nil, err
	}
	return result.Estimate, nil
}

// SubmitTransaction broadcasts a signed transaction and returns the
// transaction ID the node accepted it under.
func (c *Client) SubmitTransaction(ctx context.Context, transaction *appmessage.RPCTransaction) (string, error) {
	var result struct {
		TransactionID string `json:"transactionId"`
	}
	err := c.call(ctx, "submitTransaction", struct {
		Transaction *appmessage.RPCTransaction `json:"transaction"`
		AllowOrphan bool                       `json:"allowOrphan"`
	}{transaction, false}, &result)
	if err != nil {
		return "", err
	}
	return result.TransactionID, nil
}
