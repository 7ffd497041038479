// Package errors provides coded, actionable errors for gamewire's
// configuration loader, mock server and CLI.
//
// Every error carries a code registered in this package (e.g. "G104"),
// a category, a one-line message and an optional detail, suggestion and
// wrapped cause. The wire codec in pkg/protocol keeps plain sentinel
// errors; this package wraps them at the edges where a human reads them.
//
// # Error Codes
//
//   - G1xx: configuration (gamewire.json)
//   - G2xx: server (listeners, handshake, handlers)
//   - G3xx: CLI input (hex dumps, flags, dictionary files)
//
// # Usage
//
//	err := errors.New("G104").
//	    WithDetail(`"brotli" is not a known compression`).
//	    WithSuggestion(`Use "none", "zlib" or "gzip"`)
//
//	fmt.Print(err.Format())
//	// ERROR G104: Unknown compression
//	//
//	//   "brotli" is not a known compression
//	//
//	//   Hint: Use "none", "zlib" or "gzip"
package errors
