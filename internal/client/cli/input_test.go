package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  hello world \n"), "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Name?\n> " {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}

	if _, err := GetSimpleText(rdr(""), "Name?", &out); err == nil {
		t.Fatal("expected EOF error on empty input")
	}
}

func TestGetOptionalText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetOptionalText(rdr("\n"), "Grupo", &out)
	if err != nil || got != nil {
		t.Fatalf("blank answer: got %v, err=%v", got, err)
	}

	got, err = GetOptionalText(rdr("A1\n"), "Grupo", &out)
	if err != nil || got == nil || *got != "A1" {
		t.Fatalf("got %v, err=%v", got, err)
	}
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()

	readPassword = func(int) ([]byte, error) { return []byte("Abcdef1!"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out, "Password")
	if err != nil || pw != "Abcdef1!" {
		t.Fatalf("got %q, err=%v", pw, err)
	}

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	if _, err := GetPassword(&out, "Password"); err == nil {
		t.Fatal("expected error")
	}
}
