package core

// Event names delivered to page contexts, per EIP-1193.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
)

// WalletEvent is one provider event scoped to a single origin. Fan-out never
// crosses origins.
type WalletEvent struct {
	Origin string `json:"origin"`
	Name   string `json:"name"`
	// Accounts carries the payload for accountsChanged.
	Accounts []string `json:"accounts,omitempty"`
	// ChainID carries the hex payload for chainChanged.
	ChainID string `json:"chainId,omitempty"`
	// Reason carries the optional payload for disconnect.
	Reason string `json:"reason,omitempty"`
}

// AccountsChangedEvent builds an accountsChanged event for the origin.
func AccountsChangedEvent(origin string, accounts []string) WalletEvent {
	return WalletEvent{Origin: origin, Name: EventAccountsChanged, Accounts: accounts}
}

// ChainChangedEvent builds a chainChanged event for the origin.
func ChainChangedEvent(origin, chainID string) WalletEvent {
	return WalletEvent{Origin: origin, Name: EventChainChanged, ChainID: chainID}
}

// DisconnectEvent builds a disconnect event for the origin.
func DisconnectEvent(origin, reason string) WalletEvent {
	return WalletEvent{Origin: origin, Name: EventDisconnect, Reason: reason}
}
