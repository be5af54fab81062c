package hl7v2

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testA08 = "MSH|^~\\&|VALLEYEMR|VALLEY_MED|EDI|EDIFAC|20240301091500||ADT^A08|V0042|P|2.4\r" +
	"PID|1||VM-555^^^VALLEY^MR||Roe^Jane||19750612|F"

var fixedNow = time.Date(2024, 3, 1, 9, 16, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// =========== Framing Tests ===========

func TestFrameMessage(t *testing.T) {
	raw := []byte("MSH|^~\\&|A|B|||20240115||ADT^A01|C1|P|2.5.1")
	framed := FrameMessage(raw)

	if framed[0] != MLLPStartBlock {
		t.Errorf("expected first byte 0x0B, got 0x%02X", framed[0])
	}
	if framed[len(framed)-2] != MLLPEndBlock || framed[len(framed)-1] != MLLPCarriageReturn {
		t.Errorf("expected trailing 0x1C 0x0D, got % X", framed[len(framed)-2:])
	}
	if !bytes.Equal(framed[1:len(framed)-2], raw) {
		t.Errorf("inner bytes do not match original")
	}
}

func TestUnframeMessage(t *testing.T) {
	combined := append(FrameMessage([]byte("ONE")), FrameMessage([]byte("TWO"))...)

	first, rest, found := UnframeMessage(combined)
	if !found || string(first) != "ONE" {
		t.Fatalf("expected first frame ONE, got %q (found=%v)", first, found)
	}
	second, rest, found := UnframeMessage(rest)
	if !found || string(second) != "TWO" {
		t.Fatalf("expected second frame TWO, got %q (found=%v)", second, found)
	}
	if len(rest) != 0 {
		t.Errorf("expected no bytes left, got %d", len(rest))
	}

	if _, _, found := UnframeMessage([]byte("no start block")); found {
		t.Error("expected found=false without a start block")
	}
	if _, _, found := UnframeMessage(append([]byte{MLLPStartBlock}, "MSH|partial"...)); found {
		t.Error("expected found=false for a partial frame")
	}
}

// =========== ACK Tests ===========

func TestGenerateACK_SwapsParties(t *testing.T) {
	msg := parseTestMessage(t, testA08)
	ack := GenerateACK(msg, AckAccept, "", fixedNow)

	if ack.SendingApp != "EDI" || ack.SendingFac != "EDIFAC" {
		t.Errorf("expected sender EDI/EDIFAC, got %s/%s", ack.SendingApp, ack.SendingFac)
	}
	if ack.ReceivingApp != "VALLEYEMR" || ack.ReceivingFac != "VALLEY_MED" {
		t.Errorf("expected receiver VALLEYEMR/VALLEY_MED, got %s/%s", ack.ReceivingApp, ack.ReceivingFac)
	}
	if ack.Type != "ACK^A08" {
		t.Errorf("expected type 'ACK^A08', got %q", ack.Type)
	}
	if ack.ControlID != "ACK20240301091600.000" {
		t.Errorf("unexpected control id %q", ack.ControlID)
	}

	msa := ack.GetSegment("MSA")
	if msa == nil {
		t.Fatal("expected MSA segment in ACK")
	}
	if msa.GetField(1) != "AA" || msa.GetField(2) != "V0042" {
		t.Errorf("expected MSA AA|V0042, got %s|%s", msa.GetField(1), msa.GetField(2))
	}
	if len(msa.Fields) != 2 {
		t.Errorf("expected MSA-3 omitted when text is empty")
	}
}

func TestGenerateACK_ErrorText(t *testing.T) {
	msg := parseTestMessage(t, testA08)
	ack := GenerateACK(msg, AckError, "PID-7 unparseable", fixedNow)
	if got := ack.GetSegment("MSA").GetField(3); got != "PID-7 unparseable" {
		t.Errorf("expected MSA-3 text, got %q", got)
	}
}

func TestGenerateACK_EscapesErrorText(t *testing.T) {
	msg := parseTestMessage(t, testA08)
	text := `PID|7 "19800231^" is not a date~see \E`
	ack := GenerateACK(msg, AckReject, text, fixedNow)

	back, err := Parse(SerializeMessage(ack))
	if err != nil {
		t.Fatalf("failed to reparse ACK: %v", err)
	}
	msa := back.GetSegment("MSA")
	if len(msa.Fields) != 3 {
		t.Fatalf("expected 3 MSA fields, got %d", len(msa.Fields))
	}
	if got := Unescape(msa.Fields[2].Value, back.Delimiters); got != text {
		t.Errorf("expected MSA-3 %q after unescaping, got %q", text, got)
	}
}

func TestSerializeMessage_RoundTrip(t *testing.T) {
	msg := parseTestMessage(t, testA08)
	ack := GenerateACK(msg, AckAccept, "", fixedNow)

	back, err := Parse(SerializeMessage(ack))
	if err != nil {
		t.Fatalf("failed to reparse ACK: %v", err)
	}
	if back.Type != "ACK^A08" || back.Version != "2.4" {
		t.Errorf("unexpected reparsed header %q %q", back.Type, back.Version)
	}
	if back.GetSegment("MSA").GetField(2) != "V0042" {
		t.Errorf("expected MSA-2 to survive serialization")
	}
}

func TestSerializeMessage_CustomDelimiters(t *testing.T) {
	msg := parseTestMessage(t, "MSH#:*!$#APP#FAC#EDI#EDIFAC#20240301##ADT:A04#C9#P#2.4")
	out := string(SerializeMessage(GenerateACK(msg, AckAccept, "", fixedNow)))
	if !bytes.HasPrefix([]byte(out), []byte("MSH#:*!$#EDI#EDIFAC#APP#FAC#")) {
		t.Errorf("expected ACK written with the inbound delimiters, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("#ACK:A04#")) {
		t.Errorf("expected ACK:A04 message type, got %q", out)
	}
}

// =========== Listener Tests ===========

func startListener(t *testing.T, h Handler) *Listener {
	t.Helper()
	l := NewListener("127.0.0.1:0", h, zerolog.Nop())
	if err := l.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { l.Stop() })
	return l
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", l.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestListener_SendsACK(t *testing.T) {
	l := startListener(t, AcceptAll(fixedClock))
	conn := dial(t, l)

	if _, err := conn.Write(FrameMessage([]byte(testA08))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ack, err := Parse(readMLLPResponse(t, conn, 5*time.Second))
	if err != nil {
		t.Fatalf("failed to parse ACK: %v", err)
	}
	msa := ack.GetSegment("MSA")
	if msa == nil || msa.GetField(1) != "AA" || msa.GetField(2) != "V0042" {
		t.Errorf("unexpected ACK %q", SerializeMessage(ack))
	}
}

func TestListener_MultipleMessagesOneConnection(t *testing.T) {
	var mu sync.Mutex
	var received []string
	h := HandlerFunc(func(msg *Message) *Message {
		mu.Lock()
		received = append(received, msg.ControlID)
		mu.Unlock()
		return GenerateACK(msg, AckAccept, "", fixedNow)
	})
	l := startListener(t, h)
	conn := dial(t, l)

	for _, id := range []string{"CTRL1", "CTRL2"} {
		raw := "MSH|^~\\&|A|B|C|D|20240115120000||ADT^A01|" + id + "|P|2.3\rPID|1||111"
		if _, err := conn.Write(FrameMessage([]byte(raw))); err != nil {
			t.Fatalf("Write %s failed: %v", id, err)
		}
		readMLLPResponse(t, conn, 5*time.Second)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 || received[0] != "CTRL1" || received[1] != "CTRL2" {
		t.Errorf("expected CTRL1, CTRL2 in order, got %v", received)
	}
}

func TestListener_InvalidFrameKeepsConnection(t *testing.T) {
	l := startListener(t, AcceptAll(fixedClock))
	conn := dial(t, l)

	if _, err := conn.Write(FrameMessage([]byte("THIS IS NOT HL7"))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := conn.Write(FrameMessage([]byte(testA08))); err != nil {
		t.Fatalf("Write valid message failed: %v", err)
	}
	ack, err := Parse(readMLLPResponse(t, conn, 5*time.Second))
	if err != nil {
		t.Fatalf("failed to parse ACK after invalid frame: %v", err)
	}
	if ack.GetSegment("MSA").GetField(2) != "V0042" {
		t.Errorf("expected ACK for the valid message")
	}

	// the counter is bumped after the write returns
	deadline := time.Now().Add(2 * time.Second)
	for l.Stats().Answered == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	stats := l.Stats()
	if stats.Received != 2 || stats.Rejected != 1 || stats.Answered != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestListener_NilResponseSendsNothing(t *testing.T) {
	done := make(chan struct{}, 1)
	l := startListener(t, HandlerFunc(func(msg *Message) *Message {
		done <- struct{}{}
		return nil
	}))
	conn := dial(t, l)
	if _, err := conn.Write(FrameMessage([]byte(testA08))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	if l.Stats().Answered != 0 {
		t.Errorf("expected no answers")
	}
}

// =========== Helpers ===========

func parseTestMessage(t *testing.T, raw string) *Message {
	t.Helper()
	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse test message: %v", err)
	}
	return msg
}

// readMLLPResponse reads from conn until one complete MLLP frame arrives.
func readMLLPResponse(t *testing.T, conn net.Conn, timeout time.Duration) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))

	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if msg, _, found := UnframeMessage(buf); found {
			return msg
		}
		if err != nil {
			t.Fatalf("read failed before a full frame arrived: %v", err)
		}
	}
}
