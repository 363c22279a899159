package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// AssetFile is the on-disk asset and settler table
type AssetFile struct {
	Assets   []AssetEntry   `toml:"assets" json:"assets"`
	Settlers []SettlerEntry `toml:"settlers" json:"settlers"`
}

// AssetEntry maps a source token to a destination denomination
type AssetEntry struct {
	// Token is an EVM address or 32 bytes of hex
	Token  string `toml:"token" json:"token"`
	Domain uint32 `toml:"domain" json:"domain"`
	Denom  string `toml:"denom" json:"denom"`
}

// SettlerEntry pins the execute dialect of a destination settler
type SettlerEntry struct {
	// Address is a bech32 contract address or 32 bytes of hex
	Address string `toml:"address" json:"address"`
	Dialect string `toml:"dialect" json:"dialect"`
}

// LoadAssetFile reads path, TOML unless it ends in .json, into the given tables
func LoadAssetFile(path string, assets *chains.AssetTable, settlers *chains.SettlerTable) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read asset file: %w", err)
	}

	var file AssetFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = toml.Unmarshal(data, &file)
	}
	if err != nil {
		return fmt.Errorf("failed to parse asset file %s: %w", path, err)
	}

	for i, entry := range file.Assets {
		token, err := parseBytes32(entry.Token)
		if err != nil {
			return fmt.Errorf("assets[%d]: invalid token: %w", i, err)
		}
		if entry.Domain == 0 {
			return fmt.Errorf("assets[%d]: domain is required", i)
		}
		if entry.Denom == "" {
			return fmt.Errorf("assets[%d]: denom is required", i)
		}
		assets.Set(token, entry.Domain, entry.Denom)
	}

	for i, entry := range file.Settlers {
		settler, err := parseBytes32(entry.Address)
		if err != nil {
			return fmt.Errorf("settlers[%d]: invalid address: %w", i, err)
		}
		dialect, err := chains.ParseDialect(entry.Dialect)
		if err != nil {
			return fmt.Errorf("settlers[%d]: %w", i, err)
		}
		settlers.Set(settler, dialect)
	}
	return nil
}

// parseBytes32 accepts a bech32 address, an EVM address or 32 bytes of hex
func parseBytes32(s string) ([32]byte, error) {
	if _, raw, err := translate.Bech32ToBytes(s); err == nil {
		return translate.PadTo32(raw)
	}
	raw, err := translate.HexToBytes(s)
	if err != nil {
		return [32]byte{}, err
	}
	return translate.PadTo32(raw)
}
