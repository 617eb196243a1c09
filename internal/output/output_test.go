package output

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		input string
		want  ColorMode
	}{
		{"auto", ColorAuto},
		{"always", ColorAlways},
		{"never", ColorNever},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColorMode(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseColorMode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseColorMode("rainbow"); err == nil {
		t.Error("expected error for invalid color mode, got nil")
	}
}

func TestResolveColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !ResolveColors(ColorAlways, false) {
		t.Error("ColorAlways must win over NO_COLOR")
	}
	if ResolveColors(ColorAuto, true) {
		t.Error("NO_COLOR must disable auto colors")
	}

	os.Unsetenv("NO_COLOR")
	t.Setenv("TERM", "xterm-256color")
	if !ResolveColors(ColorAuto, true) {
		t.Error("auto should follow config when nothing overrides it")
	}
	if ResolveColors(ColorNever, true) {
		t.Error("ColorNever must disable colors")
	}

	t.Setenv("TERM", "dumb")
	if ResolveColors(ColorAuto, true) {
		t.Error("TERM=dumb must disable auto colors")
	}
}

func newTestPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errb bytes.Buffer
	p := NewPrinterWithOptions(PrinterOptions{
		ColorMode: ColorNever,
		Quiet:     quiet,
		Out:       &out,
		Err:       &errb,
	})
	return p, &out, &errb
}

func TestPrinter_PlainMessages(t *testing.T) {
	p, out, errb := newTestPrinter(false)

	p.Success("wrote %d files", 3)
	p.Info("scanning")
	p.Field("Saved", "%s", "12 KiB")
	p.Warning("slow")
	p.Error("broken")
	p.Progress(3, 1, 10)

	stdout := out.String()
	for _, want := range []string{"[OK] wrote 3 files", "scanning", "  Saved:         12 KiB"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	stderr := errb.String()
	for _, want := range []string{"[WARN] slow", "[ERROR] broken", "4/10 processed (1 failed)"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestPrinter_Quiet(t *testing.T) {
	p, out, errb := newTestPrinter(true)

	p.Info("hidden")
	p.Success("hidden")
	p.Warning("hidden")
	p.Header("Hidden")
	p.Progress(1, 0, 1)
	p.Error("shown")

	if out.Len() != 0 {
		t.Errorf("quiet printer wrote to stdout: %q", out.String())
	}
	if got := errb.String(); got != "[ERROR] shown\n" {
		t.Errorf("errors must survive quiet mode, got %q", got)
	}
}

func TestTable_Render(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	tbl := p.NewTable([]string{"Format", "Files", "Size"})
	tbl.AddRow("jpeg", "2", "48 KiB")
	tbl.AddRow("webp", "1", "12 KiB")
	if err := tbl.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := out.String()
	for _, want := range []string{"FORMAT", "jpeg", "48 KiB", "webp"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}

func TestSizes(t *testing.T) {
	if got := Bytes(50 * 1024); got != "50 KiB" {
		t.Errorf("Bytes = %q", got)
	}
	if got := Bytes(-2048); got != "-2.0 KiB" {
		t.Errorf("Bytes(-2048) = %q", got)
	}
	if got := Reduction(1000, 250); got != "75.0%" {
		t.Errorf("Reduction = %q", got)
	}
	if got := Reduction(1000, 1200); got != "0%" {
		t.Errorf("growth must clamp to 0%%, got %q", got)
	}
	if got := Ratio(0, 10); got != "-" {
		t.Errorf("Ratio(0, 10) = %q", got)
	}
	if got := Count(12345); got != "12,345" {
		t.Errorf("Count = %q", got)
	}
}
