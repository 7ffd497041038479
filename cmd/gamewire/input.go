package main

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/vango-dev/gamewire/internal/config"
	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

// parseHex accepts hex dumps as printed by most tools: whitespace, commas,
// colons and 0x prefixes are ignored.
func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ':':
			return -1
		}
		return r
	}, s)

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.New("G301").Wrap(err)
	}
	return b, nil
}

// loadDict returns the dictionary for the --dict and --no-dict flags. With
// neither set it is the mock server's default table.
func loadDict(path string, none bool) (*protocol.Dictionary, error) {
	if none {
		return nil, nil
	}
	if path == "" {
		return protocol.NewDictionary(config.DefaultDict())
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.New("G303").Wrap(err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.New("G303").Wrap(err)
	}

	var routes map[string]uint16
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, errors.New("G303").WithDetail(expanded).Wrap(err)
	}
	dict, err := protocol.NewDictionary(routes)
	if err != nil {
		return nil, errors.New("G303").WithDetail(expanded).Wrap(err)
	}
	return dict, nil
}
