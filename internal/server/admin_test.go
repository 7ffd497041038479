package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/gamewire/pkg/protocol"
)

func TestAdminHealthAndDict(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.AdminHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("/healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/dict", nil))
	var dict map[string]uint16
	if err := json.Unmarshal(rec.Body.Bytes(), &dict); err != nil {
		t.Fatalf("/dict body: %v", err)
	}
	if dict["connector.getsessiondata"] != 1 || dict[ErrorRoute] != 6 || len(dict) != 6 {
		t.Errorf("/dict = %v", dict)
	}
}

func TestAdminMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	c := dial(t, s)
	c.handshake()
	c.sendMessage(protocol.NewRequest(1, "a.b", nil))
	c.recvMessage()

	rec := httptest.NewRecorder()
	s.AdminHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	for _, want := range []string{
		"gamewire_connections_active 1",
		`gamewire_handshakes_total{code="200"} 1`,
		`gamewire_messages_total{direction="in",type="Request"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestAdminPushNoClients(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.AdminHandler().ServeHTTP(rec, httptest.NewRequest("POST", "/push/onMessage", strings.NewReader(`{"msg":"hi"}`)))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"sent":0}` {
		t.Errorf("/push = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	long := strings.Repeat("r", protocol.MaxRouteLength+1)
	s.AdminHandler().ServeHTTP(rec, httptest.NewRequest("POST", "/push/"+long, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("/push long route = %d, want 400", rec.Code)
	}
}

func TestAdminPushTooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	// The first body exceeds the read limit, the second only overflows
	// once the message header is added.
	for _, size := range []int{protocol.MaxPacketSize + 1, protocol.MaxPacketSize} {
		rec := httptest.NewRecorder()
		body := strings.NewReader(strings.Repeat("x", size))
		s.AdminHandler().ServeHTTP(rec, httptest.NewRequest("POST", "/push/onMessage", body))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("/push with %d bytes = %d %s, want 413", size, rec.Code, rec.Body.String())
		}
	}
}

func TestWebSocketRefusedAfterShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	s.closeAll()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + s.cfg.WSPath
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		ws.Close()
		t.Fatal("Dial() succeeded after shutdown")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
	if n := s.Connections(); n != 0 {
		t.Errorf("Connections() = %d, want 0", n)
	}
}

func TestWebSocketSession(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + s.cfg.WSPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	codec := protocol.NewCodec(protocol.WithDictionary(s.Dictionary()))
	send := func(pt protocol.PacketType, body []byte) {
		t.Helper()
		pkt, _ := protocol.Frame(pt, body)
		if err := ws.WriteMessage(websocket.BinaryMessage, pkt); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}
	recv := func() protocol.Packet {
		t.Helper()
		_, msg, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		packets, rest, err := protocol.DecodePackets(msg)
		if err != nil || len(packets) != 1 || len(rest) != 0 {
			t.Fatalf("DecodePackets() = %d packets, %d rest, %v", len(packets), len(rest), err)
		}
		return packets[0]
	}

	hs, _ := protocol.EncodeClientHandshake(&protocol.ClientHandshake{Sys: protocol.ClientSys{Platform: "web"}})
	send(protocol.PacketHandshake, hs)
	if p := recv(); p.Type != protocol.PacketHandshake {
		t.Fatalf("packet type = %v, want Handshake", p.Type)
	}

	// Ack and request coalesced into one WebSocket message.
	ack, _ := protocol.Frame(protocol.PacketHandshakeAck, nil)
	body, _ := codec.Encode(protocol.NewRequest(3, "onMembers", nil))
	data, _ := protocol.Frame(protocol.PacketData, body)
	if err := ws.WriteMessage(websocket.BinaryMessage, append(ack, data...)); err != nil {
		t.Fatal(err)
	}

	p := recv()
	m, err := codec.Decode(p.Body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.ID != 3 || !strings.Contains(string(m.Body), `"route":"onMembers"`) {
		t.Errorf("reply = %v %s", m, m.Body)
	}
}

func TestWebSocketHandlerOnlyServesPath(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.WebSocketHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/healthz on ws router = %d, want 404", rec.Code)
	}
}
