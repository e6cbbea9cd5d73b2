package host

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsole_RequestInput(t *testing.T) {
	t.Parallel()

	var out, errw bytes.Buffer
	c := NewConsole(strings.NewReader("innsbruck\n\n"), &out, &errw)

	got, err := c.RequestInput("map name", "unnamed")
	if err != nil {
		t.Fatalf("request input: %v", err)
	}
	if got != "innsbruck" {
		t.Errorf("got %q, want %q", got, "innsbruck")
	}

	// Empty line falls back to the default.
	got, err = c.RequestInput("map name", "unnamed")
	if err != nil {
		t.Fatalf("request input: %v", err)
	}
	if got != "unnamed" {
		t.Errorf("got %q, want %q", got, "unnamed")
	}

	if !strings.Contains(errw.String(), "map name [unnamed]: ") {
		t.Errorf("prompt not written to stderr: %q", errw.String())
	}
}

func TestConsole_EOFUsesFallback(t *testing.T) {
	t.Parallel()

	var out, errw bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, &errw)

	got, err := c.RequestInput("map name", "unnamed")
	if err == nil {
		t.Fatal("expected EOF error")
	}
	if got != "unnamed" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestConsole_OutputStreams(t *testing.T) {
	t.Parallel()

	var out, errw bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, &errw)

	c.PublishResult("heightmap", "out/tyrol/heights.bin")
	c.ReportProgress("fetch", 3, 12)

	if got := out.String(); got != "heightmap: out/tyrol/heights.bin\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errw.String(); got != "[fetch] 3/12\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestMock(t *testing.T) {
	t.Parallel()

	m := NewMock("tyrol")

	if got, _ := m.RequestInput("name", "x"); got != "tyrol" {
		t.Errorf("first answer = %q", got)
	}
	if got, _ := m.RequestInput("name", "x"); got != "x" {
		t.Errorf("fallback answer = %q", got)
	}

	m.PublishResult("heightmap", "a/b")
	m.ReportProgress("export", 1, 1)

	if len(m.Results) != 1 || m.Results[0] != "heightmap=a/b" {
		t.Errorf("results = %v", m.Results)
	}
	if len(m.Progress) != 1 || m.Progress[0] != "export 1/1" {
		t.Errorf("progress = %v", m.Progress)
	}
}
