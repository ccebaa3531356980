package ingestion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Counts(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 10)

	p.Start()
	p.Written(40)
	p.Failed(10)
	p.Written(50)

	summary := p.Finish()
	assert.Equal(t, 90, summary.Written)
	assert.Equal(t, 10, summary.Failed)

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "10 failed")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgress_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 10)

	p.Start()
	p.Written(150)

	assert.Contains(t, buf.String(), "100/100")
	assert.Equal(t, 100, p.Finish().Written)
}

func TestProgress_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 1000, 100)
	p.Start()

	p.Written(50)
	assert.Empty(t, buf.String(), "should not print under interval")

	p.Written(50)
	assert.NotEmpty(t, buf.String(), "should print at interval")

	buf.Reset()
	p.Written(20)
	assert.Empty(t, buf.String())
}

func TestProgress_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 10)

	p.Written(10)
	assert.Equal(t, Summary{}, p.Finish())
	assert.Empty(t, buf.String())
}

func TestProgress_ZeroTotalAndNilWriter(t *testing.T) {
	p := NewProgress(nil, 0, 0)
	p.Start()
	summary := p.Finish()
	assert.Zero(t, summary.Written)

	var buf bytes.Buffer
	p = NewProgress(&buf, 0, 10)
	p.Start()
	p.Finish()
	assert.Contains(t, buf.String(), "0/0")
}
