// Package ledger implements the JSON-RPC client for the notarization
// ledger gateway. Wire errors are mapped onto the typed domain taxonomy by
// their structured RPC error code, never by message text.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// Error codes defined by the ledger gateway contract.
const (
	codeReverted             = -32001
	codeInsufficientFunds    = -32002
	codeInvalidSignature     = -32003
	codeDuplicateFingerprint = -32004
	codeNonceConflict        = -32005
	codeFeeEstimation        = -32006
	codeNodeTimeout          = -32007
)

// Config holds ledger client settings.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	// CombinedMint selects the one-call mint shape in which the gateway
	// performs storage uploads itself.
	CombinedMint bool `yaml:"combined_mint"`
}

// Client speaks JSON-RPC 2.0 to the ledger gateway. It implements the
// submit/receipt operations plus the two-step mint shape.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a ledger client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// CombinedClient adds the one-call mint shape on top of Client.
type CombinedClient struct {
	*Client
}

// NewCombinedClient creates a ledger client using the combined mint shape.
func NewCombinedClient(cfg Config) *CombinedClient {
	return &CombinedClient{Client: NewClient(cfg)}
}

// SubmitProof records a content fingerprint on the ledger and returns the
// proof reference.
func (c *Client) SubmitProof(ctx context.Context, fingerprint string, metadata map[string]string) (string, error) {
	var result struct {
		ProofReference string `json:"proof_reference"`
	}
	params := []any{map[string]any{
		"fingerprint": fingerprint,
		"metadata":    metadata,
	}}
	if err := c.call(ctx, "abs_submitProof", params, &result); err != nil {
		return "", err
	}
	if result.ProofReference == "" {
		return "", fmt.Errorf("ledger returned empty proof reference")
	}
	return result.ProofReference, nil
}

// FetchReceipt returns the receipt for a proof, or nil while the proof is
// not yet included in a block.
func (c *Client) FetchReceipt(ctx context.Context, proofReference string) (*domain.Receipt, error) {
	var result *struct {
		ProofReference string `json:"proof_reference"`
		BlockNumber    uint64 `json:"block_number"`
		Confirmations  uint64 `json:"confirmations"`
		Reverted       bool   `json:"reverted"`
	}
	if err := c.call(ctx, "abs_getReceipt", []any{proofReference}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return &domain.Receipt{
		ProofReference: result.ProofReference,
		BlockNumber:    result.BlockNumber,
		Confirmations:  result.Confirmations,
		Reverted:       result.Reverted,
	}, nil
}

// MintAsset mints against an already-uploaded metadata locator (two-step
// shape).
func (c *Client) MintAsset(ctx context.Context, ownerAddress, metadataLocator string) (*domain.MintResult, error) {
	var result struct {
		ProofReference string `json:"proof_reference"`
		AssetReference string `json:"asset_reference"`
	}
	params := []any{map[string]any{
		"owner":        ownerAddress,
		"metadata_url": metadataLocator,
	}}
	if err := c.call(ctx, "abs_mintAsset", params, &result); err != nil {
		return nil, err
	}
	return &domain.MintResult{
		ProofReference: result.ProofReference,
		AssetReference: result.AssetReference,
	}, nil
}

// MintAssetWithContent is the combined one-call shape: the gateway uploads
// content and metadata itself and returns the storage locators it created.
func (c *CombinedClient) MintAssetWithContent(ctx context.Context, ownerAddress string, content []byte, contentType string) (*domain.MintResult, error) {
	var result struct {
		ProofReference    string   `json:"proof_reference"`
		AssetReference    string   `json:"asset_reference"`
		StorageReferences []string `json:"storage_references"`
	}
	params := []any{map[string]any{
		"owner":        ownerAddress,
		"content":      base64.StdEncoding.EncodeToString(content),
		"content_type": contentType,
	}}
	if err := c.call(ctx, "abs_mintAssetWithContent", params, &result); err != nil {
		return nil, err
	}
	return &domain.MintResult{
		ProofReference:    result.ProofReference,
		AssetReference:    result.AssetReference,
		StorageReferences: result.StorageReferences,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := domain.InfraNetwork
		if isTimeout(err) {
			kind = domain.InfraTimeout
		}
		return &domain.RetryableInfraError{Kind: kind, Err: fmt.Errorf("rpc call %s: %w", method, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.RetryableInfraError{Kind: domain.InfraNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		// Gateway-level failures (5xx, rate limiting) are transient.
		return &domain.RetryableInfraError{
			Kind: domain.InfraNetwork,
			Err:  fmt.Errorf("http %d from ledger gateway: %s", resp.StatusCode, body),
		}
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return mapRPCError(rpcResp.Error)
	}

	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode rpc result for %s: %w", method, err)
		}
	}
	return nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func mapRPCError(e *rpcError) error {
	switch e.Code {
	case codeReverted:
		return &domain.FatalLedgerError{Kind: domain.FaultReverted, Detail: e.Message}
	case codeInsufficientFunds:
		return &domain.FatalLedgerError{Kind: domain.FaultInsufficientFunds, Detail: e.Message}
	case codeInvalidSignature:
		return &domain.FatalLedgerError{Kind: domain.FaultInvalidSignature, Detail: e.Message}
	case codeDuplicateFingerprint:
		return &domain.FatalLedgerError{Kind: domain.FaultDuplicateFingerprint, Detail: e.Message}
	case codeNonceConflict:
		return &domain.RetryableInfraError{Kind: domain.InfraNonceConflict, Err: e}
	case codeFeeEstimation:
		return &domain.RetryableInfraError{Kind: domain.InfraFeeEstimation, Err: e}
	case codeNodeTimeout:
		return &domain.RetryableInfraError{Kind: domain.InfraTimeout, Err: e}
	default:
		return e
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
