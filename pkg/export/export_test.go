package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"name", "percent"},
		Rows: []Row{
			{Values: map[string]string{"name": "Algebra", "percent": "85%"}, Emphasis: true},
			{Values: map[string]string{"name": "Homework, Quizzes", "percent": "90%"}, Depth: 1},
			{Values: map[string]string{"name": strings.Repeat("very long assignment name ", 20), "percent": "EC"}, Depth: 2},
		},
		Widths: []float64{3, 1},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "level,name,percent", lines[0])
	assert.Equal(t, "0,Algebra,85%", lines[1])
	assert.Equal(t, `1,"Homework, Quizzes",90%`, lines[2])

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Algebra - what-if")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(Dataset{Headers: []string{"a", "b"}, Widths: []float64{3, 1}})
	assert.InDelta(t, pageWidth*0.75, widths[0], 1e-9)

	widths = columnWidths(Dataset{Headers: []string{"a", "b"}})
	assert.InDelta(t, pageWidth/2, widths[1], 1e-9)
}
