// Package settings holds the user-supplied configuration overlay: custom RPC
// endpoints, tokens, bridges, and assistants layered on top of the immutable
// network defaults. The overlay is the only persisted, mutable state the
// client owns.
package settings

import (
	"errors"
	"fmt"

	"github.com/counterstake/bridge-client/internal/network"
)

const (
	// SchemaVersion is written into every persisted overlay document.
	// Loaders reject documents from a newer schema instead of guessing.
	SchemaVersion = 1
)

var (
	ErrSchemaVersion = errors.New("settings: unsupported schema version")
	ErrInvalidEntry  = errors.New("settings: invalid overlay entry")
)

// NetworkOverlay overrides parts of one network's default config. Each
// CustomX flag gates whether the matching override field applies at all; a
// false flag means the default wins regardless of the field's contents.
type NetworkOverlay struct {
	CustomRPC bool     `json:"customRpc,omitempty"`
	RPCURLs   []string `json:"rpcUrls,omitempty"`

	CustomTokens bool                           `json:"customTokens,omitempty"`
	Tokens       map[string]network.TokenConfig `json:"tokens,omitempty"`

	CustomBridges bool                            `json:"customBridges,omitempty"`
	Bridges       map[string]network.BridgeConfig `json:"bridges,omitempty"`

	CustomAssistants bool                               `json:"customAssistants,omitempty"`
	Assistants       map[string]network.AssistantConfig `json:"assistants,omitempty"`

	CustomOracles bool              `json:"customOracles,omitempty"`
	Oracles       map[string]string `json:"oracles,omitempty"`
}

// Overlay is the persisted settings document: one entry per network key.
type Overlay struct {
	Version  int                       `json:"version"`
	Networks map[string]NetworkOverlay `json:"networks,omitempty"`
}

func NewOverlay() Overlay {
	return Overlay{Version: SchemaVersion, Networks: map[string]NetworkOverlay{}}
}

// Validate checks the document is loadable by this client.
func (o Overlay) Validate() error {
	if o.Version > SchemaVersion {
		return fmt.Errorf("%w: document version %d, client supports <= %d", ErrSchemaVersion, o.Version, SchemaVersion)
	}
	return nil
}

// Network returns the overlay entry for key, or a zero entry when absent.
func (o Overlay) Network(key string) NetworkOverlay {
	if o.Networks == nil {
		return NetworkOverlay{}
	}
	return o.Networks[key]
}

// SetNetwork replaces the overlay entry for key.
func (o *Overlay) SetNetwork(key string, entry NetworkOverlay) {
	if o.Networks == nil {
		o.Networks = map[string]NetworkOverlay{}
	}
	o.Networks[key] = entry
}
