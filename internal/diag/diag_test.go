package diag

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestList_AddAndCount(t *testing.T) {
	l := NewList("remit.835")
	l.Add(MalformedSegment, 3, "ZZZ", "unrecognized segment %q", "ZZZ")
	l.Add(UnmappedCode, 5, "CAS", "code %s not in table", "N999")
	l.AddFile(InvalidDomainValue, "bad date")

	if l.Len() != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", l.Len())
	}
	if l.Count(MalformedSegment) != 1 {
		t.Errorf("expected 1 malformed segment, got %d", l.Count(MalformedSegment))
	}

	items := l.Items()
	if items[0].File != "remit.835" {
		t.Errorf("expected file remit.835, got %q", items[0].File)
	}
	if items[0].Message != `unrecognized segment "ZZZ"` {
		t.Errorf("unexpected message: %q", items[0].Message)
	}
	if items[2].Segment != -1 {
		t.Errorf("expected file-level diagnostic to have segment -1, got %d", items[2].Segment)
	}
}

func TestList_ItemsIsCopy(t *testing.T) {
	l := NewList("a")
	l.AddFile(MalformedSegment, "x")
	items := l.Items()
	items[0].Message = "changed"
	if l.Items()[0].Message != "x" {
		t.Error("expected Items to return a copy")
	}
}

func TestNilList(t *testing.T) {
	var l *List
	if l.Len() != 0 || l.Count(UnmappedCode) != 0 || l.Items() != nil {
		t.Error("expected nil list to behave as empty")
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Kind: MalformedSegment, File: "f", Segment: 2, Tag: "HL", Message: "parent not open"}
	if !strings.Contains(d.String(), "segment 2 (HL)") {
		t.Errorf("unexpected string: %s", d.String())
	}
}

func TestCountByKindAndKinds(t *testing.T) {
	items := []Diagnostic{
		{Kind: UnmappedCode}, {Kind: MalformedSegment}, {Kind: UnmappedCode},
	}
	counts := CountByKind(items)
	if counts[UnmappedCode] != 2 {
		t.Errorf("expected 2 unmapped, got %d", counts[UnmappedCode])
	}
	kinds := Kinds(items)
	if len(kinds) != 2 || kinds[0] != MalformedSegment {
		t.Errorf("unexpected kinds: %v", kinds)
	}
}

func TestFileError_Unwrap(t *testing.T) {
	fe := FileError{File: "missing.835", Err: fs.ErrNotExist}
	if !errors.Is(fe, fs.ErrNotExist) {
		t.Error("expected FileError to unwrap to fs.ErrNotExist")
	}
	if !strings.HasPrefix(fe.Error(), "missing.835: ") {
		t.Errorf("unexpected error text: %s", fe.Error())
	}
}
