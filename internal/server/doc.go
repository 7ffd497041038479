// Package server implements a Pitaya-compatible mock peer for exercising
// client libraries.
//
// A Server listens on plain TCP, TLS and WebSocket. Each connection runs
// the Pitaya session:
//
//	client                         server
//	  Handshake {sys, user}  ──►
//	                         ◄──  Handshake {code, sys{heartbeat, dict, ...}}
//	  HandshakeAck           ──►
//	                         ◄──  Heartbeat (every sys.heartbeat seconds)
//	  Data (Request)         ──►
//	                         ◄──  Data (Response, same id)
//
// Stream bytes are fed to a protocol.PacketBuffer, so packets may arrive
// split or coalesced in any way. A header with an unknown type or an
// oversized length closes the connection. A Data packet whose message
// fails to decode is answered with a Kick when kickOnDecodeError is set.
//
// Requests are passed to a Handler. The default EchoHandler replies with
//
//	{"isCompressed": <body was compressed>, "route": "<route>"}
//
// and answers the route "connector.geterror" with an error response.
//
// Alongside the game transports the admin router exposes /healthz, /dict,
// /metrics (Prometheus) and POST /push/{route}.
package server
