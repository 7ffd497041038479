package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Config Errors (G101-G199)
	// ============================================

	"G101": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Pass --config or create ~/.gamewire/gamewire.json",
	},
	"G102": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "gamewire.json could not be parsed as JSON.",
	},
	"G103": {
		Category:   CategoryConfig,
		Message:    "Invalid listen address",
		Suggestion: `Use host:port, e.g. ":3251" or "127.0.0.1:3250"`,
	},
	"G104": {
		Category:   CategoryConfig,
		Message:    "Unknown compression",
		Suggestion: `Use "none", "zlib" or "gzip"`,
	},
	"G105": {
		Category: CategoryConfig,
		Message:  "Duplicate route code",
		Detail:   "Every route in the dictionary needs its own code.",
	},
	"G106": {
		Category:   CategoryConfig,
		Message:    "Invalid client version constraint",
		Suggestion: `Use a semver constraint such as ">= 0.3.0"`,
	},
	"G107": {
		Category: CategoryConfig,
		Message:  "TLS listener needs a certificate",
		Detail:   "tls is set but tlsCert or tlsKey is empty.",
	},
	"G108": {
		Category:   CategoryConfig,
		Message:    "No listener configured",
		Suggestion: "Set at least one of tcp, tls or ws",
	},
	"G109": {
		Category: CategoryConfig,
		Message:  "Invalid heartbeat",
		Detail:   "heartbeat is a number of seconds and must not be negative.",
	},
	"G110": {
		Category: CategoryConfig,
		Message:  "Config write failed",
	},

	// ============================================
	// Server Errors (G201-G299)
	// ============================================

	"G201": {
		Category: CategoryServer,
		Message:  "Listen failed",
	},
	"G202": {
		Category: CategoryServer,
		Message:  "Invalid handshake",
		Detail:   "The client handshake body is not valid JSON.",
	},
	"G203": {
		Category: CategoryServer,
		Message:  "Client version not supported",
	},
	"G204": {
		Category: CategoryServer,
		Message:  "Handler failed",
	},
	"G205": {
		Category: CategoryProtocol,
		Message:  "Malformed packet stream",
		Detail:   "A packet header carried an unknown type or an oversized length.",
	},
	"G206": {
		Category: CategoryProtocol,
		Message:  "Malformed message",
	},
	"G207": {
		Category: CategoryServer,
		Message:  "TLS certificate could not be loaded",
	},

	// ============================================
	// CLI Errors (G301-G399)
	// ============================================

	"G301": {
		Category:   CategoryCLI,
		Message:    "Invalid hex input",
		Suggestion: "Pass bytes as hex, spaces and 0x prefixes are ignored",
	},
	"G302": {
		Category:   CategoryCLI,
		Message:    "Unknown message type",
		Suggestion: "Use request, notify, response or push",
	},
	"G303": {
		Category:   CategoryCLI,
		Message:    "Invalid dictionary file",
		Suggestion: `Use a JSON object of route to code, e.g. {"chat.send": 1}`,
	},
	"G304": {
		Category: CategoryCLI,
		Message:  "Encode failed",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
