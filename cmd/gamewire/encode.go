package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

func encodeCmd() *cobra.Command {
	var (
		packetType string
		msgType    string
		id         uint64
		route      string
		body       string
		isError    bool
		dictPath   string
		noDict     bool
		compress   string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a packet and print it as hex",
		Long: `Encode a message into a Data packet, or any other packet type
with a raw body, and print the wire bytes as hex.

Examples:
  gamewire encode --type request --id 1 --route connector.getsessiondata --body '{}'
  gamewire encode --type push --route onMessage --body '{"msg":"hi"}' --compress zlib
  gamewire encode --packet heartbeat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := parsePacketType(packetType)
			if err != nil {
				return err
			}

			payload := []byte(body)
			if pt == protocol.PacketData {
				comp, err := protocol.ParseCompression(compress)
				if err != nil {
					return errors.New("G104").WithField("compress").Wrap(err)
				}
				dict, err := loadDict(dictPath, noDict)
				if err != nil {
					return err
				}
				m, err := buildMessage(msgType, id, route, payload, isError)
				if err != nil {
					return err
				}
				codec := protocol.NewCodec(protocol.WithDictionary(dict), protocol.WithCompression(comp))
				payload, err = codec.Encode(m)
				if err != nil {
					return errors.New("G304").Wrap(err)
				}
			}

			return runEncode(cmd.OutOrStdout(), pt, payload)
		},
	}

	cmd.Flags().StringVarP(&packetType, "packet", "p", "data", "Packet type: handshake, handshakeack, heartbeat, data, kick")
	cmd.Flags().StringVarP(&msgType, "type", "t", "request", "Message type: request, notify, response, push")
	cmd.Flags().Uint64Var(&id, "id", 0, "Request id (request and response)")
	cmd.Flags().StringVarP(&route, "route", "r", "", "Route (request, notify and push)")
	cmd.Flags().StringVarP(&body, "body", "b", "", "Message or packet body")
	cmd.Flags().BoolVar(&isError, "error", false, "Set the error flag")
	cmd.Flags().StringVarP(&dictPath, "dict", "d", "", "Route dictionary JSON file (default: mock server routes)")
	cmd.Flags().BoolVar(&noDict, "no-dict", false, "Never compress routes")
	cmd.Flags().StringVarP(&compress, "compress", "c", "none", "Body compression: none, zlib, gzip")

	return cmd
}

func runEncode(out io.Writer, pt protocol.PacketType, body []byte) error {
	pkt, err := protocol.Frame(pt, body)
	if err != nil {
		return errors.New("G304").Wrap(err)
	}
	fmt.Fprintf(out, "% x\n", pkt)
	return nil
}

func parsePacketType(s string) (protocol.PacketType, error) {
	switch strings.ToLower(s) {
	case "handshake":
		return protocol.PacketHandshake, nil
	case "handshakeack", "ack":
		return protocol.PacketHandshakeAck, nil
	case "heartbeat":
		return protocol.PacketHeartbeat, nil
	case "data", "":
		return protocol.PacketData, nil
	case "kick":
		return protocol.PacketKick, nil
	default:
		return 0, errors.New("G302").
			WithField("packet").
			WithDetailf("%q is not a packet type", s).
			WithSuggestion("Use handshake, handshakeack, heartbeat, data or kick")
	}
}

func buildMessage(typ string, id uint64, route string, body []byte, isError bool) (*protocol.Message, error) {
	var m *protocol.Message
	switch strings.ToLower(typ) {
	case "request":
		m = protocol.NewRequest(id, route, body)
	case "notify":
		m = protocol.NewNotify(route, body)
	case "response":
		m = protocol.NewResponse(id, body)
	case "push":
		m = protocol.NewPush(route, body)
	default:
		return nil, errors.New("G302").WithField("type").WithDetailf("%q is not a message type", typ)
	}
	m.Err = isError
	return m, nil
}
