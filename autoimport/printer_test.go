package autoimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "never")
	p.Report("import os")
	assert.Equal(t, "Autoimport: import os\n", buf.String())

	buf.Reset()
	p.SetColor("always")
	p.Report("import os")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "Autoimport:")
	assert.Contains(t, buf.String(), "import os\n")

	// A buffer is not a terminal.
	buf.Reset()
	p.SetColor("auto")
	p.Report("import os")
	assert.Equal(t, "Autoimport: import os\n", buf.String())
}

func TestPrinterAutoDetectsOnTerminal(t *testing.T) {
	// The output writer is not a file; the profile comes from the terminal.
	var buf bytes.Buffer
	p := NewPrinter(&buf, "auto", WithProfile(termenv.ANSI256))
	p.Report("import os")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.True(t, strings.HasSuffix(buf.String(), " import os\n"))

	buf.Reset()
	p.SetColor("never")
	p.Report("import os")
	assert.Equal(t, "Autoimport: import os\n", buf.String())

	// A non-terminal detection target keeps auto plain.
	buf.Reset()
	var term bytes.Buffer
	NewPrinter(&buf, "auto", WithTerminal(&term)).Report("import os")
	assert.Equal(t, "Autoimport: import os\n", buf.String())
	assert.Empty(t, term.String())
}
