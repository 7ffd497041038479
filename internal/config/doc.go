// Package config provides configuration parsing for the gamewire mock
// server.
//
// The configuration is stored in gamewire.json, by default under
// ~/.gamewire. This package handles loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "tcp": ":3251",
//	  "tls": "",
//	  "ws": ":3250",
//	  "wsPath": "/ws",
//	  "admin": ":9100",
//	  "tlsCert": "~/.gamewire/cert.pem",
//	  "tlsKey": "~/.gamewire/key.pem",
//	  "heartbeat": 2,
//	  "serializer": "json",
//	  "compression": "zlib",
//	  "useDict": true,
//	  "dict": {
//	    "connector.getsessiondata": 1,
//	    "onMessage": 4
//	  },
//	  "minClientVersion": ">= 0.3.0",
//	  "kickOnDecodeError": true
//	}
//
// # Usage
//
//	cfg, err := config.LoadFile("~/.gamewire/gamewire.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
