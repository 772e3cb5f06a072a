package settings

import (
	"github.com/counterstake/bridge-client/internal/network"
)

// NetworkWithSettings resolves key against the defaults with the overlay
// merged on top. Overridable sub-objects merge key-wise, so a partial
// override is additive and no default entry is silently dropped. An unknown
// key returns ok=false; merge resolution never fails.
func NetworkWithSettings(reg *network.Registry, overlay Overlay, key string) (network.NetworkConfig, bool) {
	base, ok := reg.ByKey(key)
	if !ok {
		return network.NetworkConfig{}, false
	}
	return Merged(base, overlay.Network(key)), true
}

// Merged applies one network's overlay entry onto its default config.
func Merged(base network.NetworkConfig, ov NetworkOverlay) network.NetworkConfig {
	out := base
	// Copy the maps so callers always receive a snapshot detached from the
	// shared defaults.
	out.Tokens = cloneMap(base.Tokens)
	out.Bridges = cloneMap(base.Bridges)
	out.Assistants = cloneMap(base.Assistants)
	out.RPCURLs = append([]string(nil), base.RPCURLs...)

	if ov.CustomRPC && len(ov.RPCURLs) > 0 {
		out.RPCURLs = append([]string(nil), ov.RPCURLs...)
	}
	if ov.CustomTokens {
		for k, v := range ov.Tokens {
			out.Tokens[k] = v
		}
	}
	if ov.CustomBridges {
		for k, v := range ov.Bridges {
			out.Bridges[k] = v
		}
	}
	if ov.CustomAssistants {
		for k, v := range ov.Assistants {
			out.Assistants[k] = v
		}
	}
	return out
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
