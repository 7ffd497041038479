package protocol

import (
	"bytes"
	"testing"
)

// === Varint Benchmarks ===

func BenchmarkVarint_EncodeSmall(b *testing.B) {
	buf := make([]byte, MaxVarintLen)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeUvarint(buf, 127)
	}
}

func BenchmarkVarint_EncodeLarge(b *testing.B) {
	buf := make([]byte, MaxVarintLen)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeUvarint(buf, 1<<28)
	}
}

func BenchmarkVarint_DecodeLarge(b *testing.B) {
	buf := AppendUvarint(nil, 1<<28)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeUvarint(buf)
	}
}

// === Packet Benchmarks ===

func BenchmarkFrame_Small(b *testing.B) {
	body := []byte(`{"route":"connector.getsessiondata"}`)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Frame(PacketData, body)
	}
}

func BenchmarkDecodePackets_Stream(b *testing.B) {
	var stream []byte
	for i := 0; i < 32; i++ {
		p, _ := Frame(PacketData, bytes.Repeat([]byte("x"), 64))
		stream = append(stream, p...)
	}
	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = DecodePackets(stream)
	}
}

func BenchmarkPacketBuffer_Fragmented(b *testing.B) {
	p, _ := Frame(PacketData, bytes.Repeat([]byte("x"), 256))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := NewPacketBuffer()
		for off := 0; off < len(p); off += 16 {
			end := min(off+16, len(p))
			_, _ = buf.Feed(p[off:end])
		}
	}
}

// === Message Benchmarks ===

func BenchmarkEncodeMessage_Request(b *testing.B) {
	m := NewRequest(12345, "connector.getsessiondata", []byte(`{"uid":"abc"}`))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeMessage(m, testDict)
	}
}

func BenchmarkDecodeMessage_Request(b *testing.B) {
	data, _ := EncodeMessage(NewRequest(12345, "connector.getsessiondata", []byte(`{"uid":"abc"}`)), testDict)
	codec := NewCodec(WithDictionary(testDict))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = codec.Decode(data)
	}
}

func BenchmarkEncodeMessage_Compressed(b *testing.B) {
	m := NewPush("onMembers", bytes.Repeat([]byte(`{"name":"player"},`), 64))
	codec := NewCodec(WithDictionary(testDict), WithCompression(CompressionZlib))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = codec.Encode(m)
	}
}
