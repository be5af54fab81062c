package hl7v2

import (
	"strings"
	"time"
)

// Acknowledgement codes for MSA-1.
const (
	AckAccept = "AA"
	AckError  = "AE"
	AckReject = "AR"
)

// GenerateACK builds an acknowledgement for incoming. The reply swaps the
// sending and receiving parties, echoes the incoming control id in MSA-2,
// and reuses the incoming delimiters. text, when non-empty, becomes MSA-3
// with its delimiters escaped.
func GenerateACK(incoming *Message, ackCode, text string, now time.Time) *Message {
	trigger := ""
	d := incoming.Delimiters
	if d.Field == 0 {
		d = DefaultDelimiters
	}
	if parts := strings.SplitN(incoming.Type, string(d.Component), 3); len(parts) >= 2 {
		trigger = parts[1]
	}

	now = now.UTC()
	stamp := now.Format("20060102150405")
	controlID := "ACK" + now.Format("20060102150405.000")
	msgType := "ACK" + string(d.Component) + trigger

	ack := &Message{
		Type:         msgType,
		ControlID:    controlID,
		Version:      incoming.Version,
		Timestamp:    now,
		RawTimestamp: stamp,
		SendingApp:   incoming.ReceivingApp,
		SendingFac:   incoming.ReceivingFac,
		ReceivingApp: incoming.SendingApp,
		ReceivingFac: incoming.SendingFac,
		Delimiters:   d,
	}

	msh := Segment{Name: "MSH", Index: 0}
	for _, v := range []string{
		string(d.Field), d.Encoding(),
		ack.SendingApp, ack.SendingFac, ack.ReceivingApp, ack.ReceivingFac,
		stamp, "", msgType, controlID, "P", incoming.Version,
	} {
		msh.Fields = append(msh.Fields, Field{Value: v, Components: []string{v}})
	}

	msa := Segment{Name: "MSA", Index: 1}
	for _, v := range []string{ackCode, incoming.ControlID, Escape(text, d)} {
		msa.Fields = append(msa.Fields, Field{Value: v, Components: []string{v}})
	}
	if text == "" {
		msa.Fields = msa.Fields[:2]
	}

	ack.Segments = []Segment{msh, msa}
	return ack
}

// SerializeMessage renders msg as raw HL7v2 with \r segment separators,
// using the message's own delimiters.
func SerializeMessage(msg *Message) []byte {
	d := msg.Delimiters
	if d.Field == 0 {
		d = DefaultDelimiters
	}
	lines := make([]string, 0, len(msg.Segments))
	for _, seg := range msg.Segments {
		lines = append(lines, serializeSegment(seg, d.Field))
	}
	return []byte(strings.Join(lines, "\r"))
}

func serializeSegment(seg Segment, sep byte) string {
	fields := seg.Fields
	// MSH-1 is the separator itself and is not written as a field.
	if seg.Name == "MSH" && len(fields) > 0 {
		fields = fields[1:]
	}
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, seg.Name)
	for _, f := range fields {
		parts = append(parts, f.Value)
	}
	return strings.Join(parts, string(sep))
}

// AcceptAll returns a Handler that acknowledges every message with AA.
func AcceptAll(now func() time.Time) Handler {
	return HandlerFunc(func(msg *Message) *Message {
		return GenerateACK(msg, AckAccept, "", now())
	})
}
