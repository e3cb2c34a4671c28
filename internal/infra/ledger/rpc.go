package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
)

const DefaultCounterMethod = "tokenIdCounter()"

// Client reads the allocation counter of a resource contract over Ethereum
// JSON-RPC. It only ever issues eth_call.
type Client struct {
	endpoint   string
	selector   [4]byte
	httpClient *http.Client
	nextID     atomic.Uint64
}

func New(endpoint, counterMethod string, timeout time.Duration) *Client {
	if counterMethod == "" {
		counterMethod = DefaultCounterMethod
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		selector:   cryptoinfra.FunctionSelector(counterMethod),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func NewFromConfig(cfg config.Config) (*Client, error) {
	if cfg.EthRPCURL == "" {
		return nil, errors.New("ETH_RPC_URL is required")
	}
	return New(cfg.EthRPCURL, cfg.LedgerCounterMethod, cfg.UpstreamTimeout()), nil
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if c != nil && client != nil {
		c.httpClient = client
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// CurrentSlot returns the counter value at the latest block. Every call hits
// the node; values are never cached.
func (c *Client) CurrentSlot(ctx context.Context, resource domain.Address) (domain.Slot, error) {
	if c == nil || c.endpoint == "" {
		return domain.Slot{}, fmt.Errorf("%w: ledger endpoint not configured", domain.ErrOracle)
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "eth_call",
		Params: []any{
			callArgs{To: resource.Hex(), Data: "0x" + hex.EncodeToString(c.selector[:])},
			"latest",
		},
	})
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrOracle, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrOracle, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrOracle, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrOracle, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Slot{}, fmt.Errorf("%w: rpc status %d", domain.ErrOracle, resp.StatusCode)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.Slot{}, fmt.Errorf("%w: decode rpc response: %v", domain.ErrOracle, err)
	}
	if decoded.Error != nil {
		return domain.Slot{}, fmt.Errorf("%w: rpc error %d: %s", domain.ErrOracle, decoded.Error.Code, decoded.Error.Message)
	}
	word, err := decodeWord(decoded.Result)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrOracle, err)
	}
	return domain.SlotFromBytes(word)
}

func decodeWord(raw json.RawMessage) ([]byte, error) {
	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.New("rpc result is not a string")
	}
	if !strings.HasPrefix(result, "0x") {
		return nil, errors.New("rpc result is not hex")
	}
	word, err := hex.DecodeString(result[2:])
	if err != nil {
		return nil, errors.New("rpc result is not hex")
	}
	if len(word) != 32 {
		return nil, fmt.Errorf("rpc result is %d bytes, want 32", len(word))
	}
	return word, nil
}
