package ledger

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Network names one of the supported ledger environments.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

const (
	mainnetMirrorURL = "https://mainnet.mirrornode.hedera.com"
	testnetMirrorURL = "https://testnet.mirrornode.hedera.com"
	mainnetRelayURL  = "https://mainnet.hashio.io/api"
	testnetRelayURL  = "https://testnet.hashio.io/api"
)

// ParseNetwork maps any value other than "mainnet" to testnet, matching the
// HEDERA_NETWORK convention.
func ParseNetwork(raw string) Network {
	if strings.EqualFold(strings.TrimSpace(raw), string(Mainnet)) {
		return Mainnet
	}
	return Testnet
}

// MirrorURL returns the built-in mirror node REST base for the network.
func (n Network) MirrorURL() string {
	if n == Mainnet {
		return mainnetMirrorURL
	}
	return testnetMirrorURL
}

// RelayURL returns the built-in JSON-RPC relay endpoint for the network.
func (n Network) RelayURL() string {
	if n == Mainnet {
		return mainnetRelayURL
	}
	return testnetRelayURL
}

// NetworkDefinitions models the structure of configs/networks.yaml.
type NetworkDefinitions struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition overrides the endpoints of a single network.
type NetworkDefinition struct {
	MirrorURL   string `yaml:"mirror_url"`
	RelayURL    string `yaml:"relay_url"`
	Description string `yaml:"description"`
}

// LoadNetworkDefinitions parses the YAML file containing endpoint overrides.
// An empty path yields an empty catalogue.
func LoadNetworkDefinitions(path string) (NetworkDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkDefinitions{Networks: map[string]NetworkDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkDefinitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}

	var defs NetworkDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return NetworkDefinitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	if defs.Networks == nil {
		defs.Networks = map[string]NetworkDefinition{}
	}
	return defs, nil
}

// Endpoints resolves the mirror and relay URLs for network, preferring the
// catalogue entry over the built-in defaults.
func (d NetworkDefinitions) Endpoints(network Network) (mirrorURL, relayURL string) {
	mirrorURL, relayURL = network.MirrorURL(), network.RelayURL()
	def, ok := d.Networks[string(network)]
	if !ok {
		return mirrorURL, relayURL
	}
	if v := strings.TrimSpace(def.MirrorURL); v != "" {
		mirrorURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(def.RelayURL); v != "" {
		relayURL = v
	}
	return mirrorURL, relayURL
}
