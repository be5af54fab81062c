package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ehr/edi/internal/eob"
	"github.com/ehr/edi/internal/platform/x12"
)

// Kind is an input format.
type Kind string

const (
	KindAuto Kind = ""
	Kind835  Kind = "835"
	Kind837  Kind = "837"
	Kind270  Kind = "270"
	Kind271  Kind = "271"
	KindHL7  Kind = "hl7"
	KindEOB  Kind = "eob"
)

// ErrUnknownFormat is returned when a file matches none of the known formats.
var ErrUnknownFormat = errors.New("pipeline: unknown input format")

// ParseKind validates a kind named on the command line or in a URL.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAuto, Kind835, Kind837, Kind270, Kind271, KindHL7, KindEOB:
		return k, nil
	case "auto":
		return KindAuto, nil
	}
	return KindAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Decode returns data as UTF-8. Anything that is not already valid UTF-8 is
// taken to be Windows-1252, which is what the HL7 feeds and printed EOBs are
// exported in.
func Decode(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode windows-1252: %w", err)
	}
	return out, nil
}

// Sniff identifies the format of decoded input: X12 by its first ST01, HL7
// by a leading MSH, EOB text by its title.
func Sniff(data []byte) (Kind, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	switch {
	case isX12(trimmed):
		st := x12.TransactionType(x12.Parse(string(trimmed)))
		switch Kind(st) {
		case Kind835, Kind837, Kind270, Kind271:
			return Kind(st), nil
		case KindAuto:
			return KindAuto, fmt.Errorf("%w: X12 input without a transaction set", ErrUnknownFormat)
		}
		return KindAuto, fmt.Errorf("%w: X12 transaction set %q", ErrUnknownFormat, st)
	case bytes.HasPrefix(trimmed, []byte("MSH")):
		return KindHL7, nil
	case bytes.Contains(bytes.ToUpper(trimmed), []byte(eob.SectionHeader)):
		return KindEOB, nil
	}
	return KindAuto, ErrUnknownFormat
}

// isX12 reports an interchange header or a bare ST segment.
func isX12(b []byte) bool {
	if bytes.HasPrefix(b, []byte("ISA")) {
		return true
	}
	if !bytes.HasPrefix(b, []byte("ST")) || len(b) < 3 {
		return false
	}
	c := b[2]
	return !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
