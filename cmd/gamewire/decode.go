package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

func decodeCmd() *cobra.Command {
	var (
		hexInput string
		dictPath string
		noDict   bool
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a captured packet stream",
		Long: `Decode a hex dump of Pitaya packets.

Every complete packet is printed. Data packets are decoded as
messages, handshake bodies are inflated if compressed. Trailing
bytes that do not form a whole packet are reported.

Examples:
  gamewire decode --hex "04 00 00 06 00 01 03 61 2e 62"
  tcpdump ... | xxd -p | gamewire decode
  gamewire decode --dict routes.json --hex "$(cat capture.hex)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hexInput == "" {
				in, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				hexInput = string(in)
			}
			data, err := parseHex(hexInput)
			if err != nil {
				return err
			}
			dict, err := loadDict(dictPath, noDict)
			if err != nil {
				return err
			}
			return runDecode(cmd.OutOrStdout(), data, protocol.NewCodec(protocol.WithDictionary(dict)))
		},
	}

	cmd.Flags().StringVarP(&hexInput, "hex", "x", "", "Hex bytes to decode (default: read stdin)")
	cmd.Flags().StringVarP(&dictPath, "dict", "d", "", "Route dictionary JSON file (default: mock server routes)")
	cmd.Flags().BoolVar(&noDict, "no-dict", false, "Decode without a route dictionary")

	return cmd
}

func runDecode(out io.Writer, data []byte, codec *protocol.Codec) error {
	packets, rest, err := protocol.DecodePackets(data)

	for i, p := range packets {
		fmt.Fprintf(out, "#%d %s len=%d\n", i, p.Type, p.Length)

		switch p.Type {
		case protocol.PacketData:
			m, derr := codec.Decode(p.Body)
			if derr != nil {
				fmt.Fprintf(out, "   error: %v\n", derr)
				continue
			}
			fmt.Fprintf(out, "   %s%s\n", m, messageFlags(m))
			if len(m.Body) > 0 {
				fmt.Fprintf(out, "   body: %s\n", printable(m.Body))
			}

		case protocol.PacketHandshake, protocol.PacketKick:
			body := p.Body
			if protocol.IsCompressed(body) {
				if inflated, ierr := protocol.Decompress(body); ierr == nil {
					body = inflated
				}
			}
			if len(body) > 0 {
				fmt.Fprintf(out, "   body: %s\n", printable(body))
			}
		}
	}

	if err != nil {
		return errors.New("G205").WithDetailf("after %d packets", len(packets)).Wrap(err)
	}
	if len(rest) > 0 {
		fmt.Fprintf(out, "incomplete: %d trailing bytes\n", len(rest))
	}
	return nil
}

func messageFlags(m *protocol.Message) string {
	var flags []string
	if m.Err {
		flags = append(flags, "error")
	}
	if m.CompressedRoute {
		flags = append(flags, "dict")
	}
	if m.Gzipped {
		flags = append(flags, "compressed")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ",") + "]"
}

// printable returns b as text when it is valid UTF-8 without control
// characters, and as spaced hex otherwise.
func printable(b []byte) string {
	if utf8.Valid(b) && !strings.ContainsFunc(string(b), func(r rune) bool {
		return r < 0x20 && r != '\n' && r != '\t'
	}) {
		return string(b)
	}
	return fmt.Sprintf("% x", b)
}
