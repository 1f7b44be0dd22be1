package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLogger_Levels(t *testing.T) {
	color.NoColor = true

	var out, errOut bytes.Buffer
	quiet := Logger{Out: &out, Err: &errOut}
	quiet.Infof("info %d", 1)
	quiet.Debugf("debug")
	quiet.Warnf("warn")
	quiet.Errorf("error")
	if out.Len() != 0 || errOut.Len() != 0 {
		t.Errorf("Expected quiet logger to print nothing, got %q %q", out.String(), errOut.String())
	}

	quiet.WarnfAlways("critical")
	if !strings.Contains(errOut.String(), "[warn] critical") {
		t.Errorf("Expected WarnfAlways output, got %q", errOut.String())
	}

	out.Reset()
	errOut.Reset()
	verbose := Logger{Verbose: true, Out: &out, Err: &errOut}
	verbose.Infof("info %d", 1)
	verbose.Debugf("debug")
	if !strings.Contains(out.String(), "[info] info 1") || strings.Contains(out.String(), "[debug]") {
		t.Errorf("Expected info without debug, got %q", out.String())
	}

	out.Reset()
	debug := Logger{Debug: true, Out: &out, Err: &errOut}
	debug.Debugf("details")
	if !strings.Contains(out.String(), "[debug] details") {
		t.Errorf("Expected debug output, got %q", out.String())
	}
}

func TestLogger_ErrorfAndReturn(t *testing.T) {
	color.NoColor = true

	var errOut bytes.Buffer
	l := Logger{Debug: true, Err: &errOut}
	err := l.ErrorfAndReturn("failed to open %s", "vault.db")
	if err == nil || err.Error() != "failed to open vault.db" {
		t.Errorf("Expected formatted error, got %v", err)
	}
	if !strings.Contains(errOut.String(), "[error] failed to open vault.db") {
		t.Errorf("Expected error to be logged, got %q", errOut.String())
	}
}
