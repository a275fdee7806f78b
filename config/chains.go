package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// Currency describes a chain's native currency, per EIP-3085.
type Currency struct {
	Name     string `toml:"name" json:"name"`
	Symbol   string `toml:"symbol" json:"symbol"`
	Decimals uint   `toml:"decimals" json:"decimals"`
}

// Chain is one supported network.
type Chain struct {
	ChainID  string   `toml:"chain_id" json:"chainId"`
	Name     string   `toml:"name" json:"chainName"`
	RPCURLs  []string `toml:"rpc_urls" json:"rpcUrls"`
	Currency Currency `toml:"native_currency" json:"nativeCurrency"`
}

// Validate checks the chain definition is usable.
func (c Chain) Validate() error {
	id := strings.TrimSpace(c.ChainID)
	if !strings.HasPrefix(id, "0x") || len(id) < 3 {
		return fmt.Errorf("%w: chain id %q is not 0x-prefixed hex", core.ErrUnsupportedChain, c.ChainID)
	}
	for _, r := range id[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("%w: chain id %q is not 0x-prefixed hex", core.ErrUnsupportedChain, c.ChainID)
		}
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing chain name", core.ErrUnsupportedChain)
	}
	return nil
}

// ChainRegistry is the supported-network set the dispatcher validates
// against. wallet_addEthereumChain grows it at runtime.
type ChainRegistry struct {
	mu     sync.RWMutex
	chains map[string]Chain
}

// NewChainRegistry creates a registry seeded with the given chains.
func NewChainRegistry(chains ...Chain) (*ChainRegistry, error) {
	r := &ChainRegistry{chains: make(map[string]Chain)}
	for _, c := range chains {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultChains is the out-of-the-box supported set.
func DefaultChains() []Chain {
	eth := Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}
	return []Chain{
		{ChainID: "0x1", Name: "Ethereum Mainnet", RPCURLs: []string{"https://eth.llamarpc.com"}, Currency: eth},
		{ChainID: "0x89", Name: "Polygon", RPCURLs: []string{"https://polygon-rpc.com"}, Currency: Currency{Name: "POL", Symbol: "POL", Decimals: 18}},
		{ChainID: "0xa4b1", Name: "Arbitrum One", RPCURLs: []string{"https://arb1.arbitrum.io/rpc"}, Currency: eth},
		{ChainID: "0xaa36a7", Name: "Sepolia", RPCURLs: []string{"https://rpc.sepolia.org"}, Currency: eth},
	}
}

type chainsFile struct {
	Chains []Chain `toml:"chains"`
}

// LoadChainRegistry reads a TOML chains file. An empty path yields the
// default set.
func LoadChainRegistry(path string) (*ChainRegistry, error) {
	if path == "" {
		return NewChainRegistry(DefaultChains()...)
	}
	var file chainsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to load chains file: %w", err)
	}
	return NewChainRegistry(file.Chains...)
}

// Add registers a chain after validation. Re-adding an id overwrites it.
func (r *ChainRegistry) Add(c Chain) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[strings.ToLower(c.ChainID)] = c
	return nil
}

// Get returns the chain for a hex id.
func (r *ChainRegistry) Get(chainID string) (Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[strings.ToLower(chainID)]
	return c, ok
}

// Supported reports whether the hex chain id is in the registry.
func (r *ChainRegistry) Supported(chainID string) bool {
	_, ok := r.Get(chainID)
	return ok
}

// List returns the registered chains ordered by id.
func (r *ChainRegistry) List() []Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}
