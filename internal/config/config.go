package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/go-homedir"

	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gamewire.json"

	// DefaultDir is where gamewire looks for its configuration when no
	// path is given.
	DefaultDir = "~/.gamewire"

	// DefaultTCPAddr is the default plain TCP listener address.
	DefaultTCPAddr = ":3251"

	// DefaultWSAddr is the default WebSocket listener address.
	DefaultWSAddr = ":3250"

	// DefaultWSPath is the default WebSocket upgrade path.
	DefaultWSPath = "/ws"

	// DefaultAdminAddr is the default address for /metrics, /healthz and /dict.
	DefaultAdminAddr = ":9100"

	// DefaultHeartbeat is the default heartbeat interval in seconds.
	DefaultHeartbeat = 2
)

// DefaultDict returns the route dictionary the mock server announces when
// none is configured.
func DefaultDict() map[string]uint16 {
	return map[string]uint16{
		"connector.getsessiondata": 1,
		"connector.setsessiondata": 2,
		"room.room.getsessiondata": 3,
		"onMessage":                4,
		"onMembers":                5,
		"connector.geterror":       6,
	}
}

// Config represents the complete gamewire.json configuration.
type Config struct {
	// TCP is the plain TCP listener address. Empty disables it.
	TCP string `json:"tcp"`

	// TLS is the TLS listener address. Empty disables it.
	TLS string `json:"tls"`

	// WS is the WebSocket listener address. Empty disables it.
	WS string `json:"ws"`

	// WSPath is the HTTP path upgraded to WebSocket.
	WSPath string `json:"wsPath,omitempty"`

	// Admin serves /metrics, /healthz and /dict. Empty disables it.
	Admin string `json:"admin"`

	// TLSCert and TLSKey are PEM files for the TLS listener.
	TLSCert string `json:"tlsCert,omitempty"`
	TLSKey  string `json:"tlsKey,omitempty"`

	// Heartbeat is the interval announced in the handshake, in seconds.
	// Zero disables heartbeats.
	Heartbeat int `json:"heartbeat"`

	// Serializer is announced in the handshake ("json" or "protobuf").
	Serializer string `json:"serializer,omitempty"`

	// Compression is applied to outbound message bodies: none, zlib or gzip.
	Compression string `json:"compression,omitempty"`

	// UseDict announces route compression to clients.
	UseDict bool `json:"useDict"`

	// Dict is the route dictionary shared with clients.
	Dict map[string]uint16 `json:"dict,omitempty"`

	// MinClientVersion is a semver constraint checked against the
	// client's sys.libVersion. Empty accepts every client.
	MinClientVersion string `json:"minClientVersion,omitempty"`

	// KickOnDecodeError sends a Kick packet before closing a connection
	// whose Data packet failed to decode.
	KickOnDecodeError bool `json:"kickOnDecodeError"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		TCP:               DefaultTCPAddr,
		WS:                DefaultWSAddr,
		WSPath:            DefaultWSPath,
		Admin:             DefaultAdminAddr,
		Heartbeat:         DefaultHeartbeat,
		Serializer:        protocol.DefaultSerializer,
		Compression:       protocol.CompressionNone.String(),
		UseDict:           true,
		Dict:              DefaultDict(),
		KickOnDecodeError: true,
	}
}

// DefaultPath returns the expanded path of the default config file.
func DefaultPath() (string, error) {
	dir, err := homedir.Expand(DefaultDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads configuration from the specified directory.
// It looks for gamewire.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. A leading
// "~" is expanded to the user's home directory. Keys missing from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.New("G101").Wrap(err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("G101").
				WithDetail("No " + ConfigFileName + " found at " + expanded)
		}
		return nil, errors.New("G102").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("G102").
			WithDetail("Failed to parse " + expanded + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = expanded
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or the default path when path is empty. A
// missing default file yields New() instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	def, err := DefaultPath()
	if err != nil {
		return New(), nil
	}
	cfg, err := LoadFile(def)
	if errors.CodeOf(err) == "G101" {
		return New(), nil
	}
	return cfg, err
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, creating its
// directory if needed.
func (c *Config) SaveTo(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return errors.New("G110").Wrap(err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("G110").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return errors.New("G110").Wrap(err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return errors.New("G110").Wrap(err)
	}

	c.configPath = expanded
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in values the file left empty and expands "~" in
// certificate paths.
func (c *Config) applyDefaults() error {
	if c.WSPath == "" {
		c.WSPath = DefaultWSPath
	} else if !strings.HasPrefix(c.WSPath, "/") {
		c.WSPath = "/" + c.WSPath
	}
	if c.Serializer == "" {
		c.Serializer = protocol.DefaultSerializer
	}
	if c.Dict == nil {
		c.Dict = DefaultDict()
	}

	for _, p := range []*string{&c.TLSCert, &c.TLSKey} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.New("G107").Wrap(err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TCP == "" && c.TLS == "" && c.WS == "" {
		return errors.New("G108")
	}

	for _, l := range []struct{ field, addr string }{
		{"tcp", c.TCP},
		{"tls", c.TLS},
		{"ws", c.WS},
		{"admin", c.Admin},
	} {
		if l.addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(l.addr); err != nil {
			return errors.New("G103").WithField(l.field).Wrap(err)
		}
	}

	if c.TLS != "" && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("G107").WithField("tls")
	}

	if c.Heartbeat < 0 {
		return errors.New("G109").WithField("heartbeat")
	}

	if _, err := protocol.ParseCompression(c.Compression); err != nil {
		return errors.New("G104").
			WithField("compression").
			WithDetailf("%q is not a known compression", c.Compression)
	}

	if _, err := c.Dictionary(); err != nil {
		return errors.New("G105").WithField("dict").Wrap(err)
	}

	if _, err := c.VersionConstraint(); err != nil {
		return errors.New("G106").WithField("minClientVersion").Wrap(err)
	}

	return nil
}

// Dictionary builds the route dictionary from Dict.
func (c *Config) Dictionary() (*protocol.Dictionary, error) {
	return protocol.NewDictionary(c.Dict)
}

// CompressionMode returns the parsed body compression, defaulting to none
// for an unparseable value. Validate reports those.
func (c *Config) CompressionMode() protocol.Compression {
	comp, _ := protocol.ParseCompression(c.Compression)
	return comp
}

// VersionConstraint parses MinClientVersion. It returns nil when no
// constraint is configured.
func (c *Config) VersionConstraint() (*semver.Constraints, error) {
	if strings.TrimSpace(c.MinClientVersion) == "" {
		return nil, nil
	}
	return semver.NewConstraint(c.MinClientVersion)
}

// HeartbeatInterval returns the heartbeat period, or 0 when disabled.
func (c *Config) HeartbeatInterval() time.Duration {
	if c.Heartbeat <= 0 {
		return 0
	}
	return time.Duration(c.Heartbeat) * time.Second
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
