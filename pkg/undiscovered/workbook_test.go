package undiscovered

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbook(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Equipment", " Material Description ", "Functional Location", ""},
		{"10001", "Forklift", "WH-1", "stray"},
		{"", "", "", ""},
		{"10002", "Pallet Jack"},
	})

	payloads, err := ReadWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	assert.Equal(t, map[string]any{
		"Equipment":            "10001",
		"Material Description": "Forklift",
		"Functional Location":  "WH-1",
	}, payloads[0])
	assert.Equal(t, map[string]any{
		"Equipment":            "10002",
		"Material Description": "Pallet Jack",
	}, payloads[1])

	m, err := NewRegistry().Get(DefaultMappingName)
	require.NoError(t, err)
	rec, err := m.Extract(payloads[1])
	require.NoError(t, err)
	assert.Equal(t, "Pallet Jack", Project(rec).Name)
	assert.Nil(t, Project(rec).Location)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a spreadsheet")))
	assert.Error(t, err)
}
