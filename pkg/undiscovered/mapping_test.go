package undiscovered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMappingExtract(t *testing.T) {
	m, err := NewRegistry().Get(DefaultMappingName)
	require.NoError(t, err)

	rec, err := m.Extract(map[string]any{
		"Material Description": "  Dell Latitude 7440 ",
		"Functional Location":  "FL-100-A",
		"Equipment":            float64(10004567),
		"EPC":                  "",
		"Unrelated":            "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dell Latitude 7440", *rec.MaterialDescription)
	assert.Nil(t, rec.Description)
	assert.Equal(t, "FL-100-A", *rec.FunctionalLocation)
	assert.Equal(t, "10004567", *rec.EquipmentNumber)
	assert.Nil(t, rec.EPC)
}

func TestCustomMappingNestedExpressions(t *testing.T) {
	m, err := Compile(Mapping{
		Name:    "feed-v2",
		Version: 2,
		Fields: map[string]string{
			FieldDescription:        "item.text",
			FieldFunctionalLocation: "site.codes[0]",
		},
	})
	require.NoError(t, err)

	rec, err := m.Extract(map[string]any{
		"item": map[string]any{"text": "Forklift"},
		"site": map[string]any{"codes": []any{"S-1", "S-2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Forklift", *rec.Description)
	assert.Equal(t, "S-1", *rec.FunctionalLocation)

	rec, err = m.Extract(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestCompileRejectsInvalidMappings(t *testing.T) {
	tests := []struct {
		name    string
		mapping Mapping
	}{
		{name: "missing name", mapping: Mapping{Version: 1, Fields: map[string]string{FieldDescription: "a"}}},
		{name: "zero version", mapping: Mapping{Name: "x", Fields: map[string]string{FieldDescription: "a"}}},
		{name: "no fields", mapping: Mapping{Name: "x", Version: 1}},
		{name: "unknown target", mapping: Mapping{Name: "x", Version: 1, Fields: map[string]string{"colour": "a"}}},
		{name: "empty expression", mapping: Mapping{Name: "x", Version: 1, Fields: map[string]string{FieldDescription: ""}}},
		{name: "bad expression", mapping: Mapping{Name: "x", Version: 1, Fields: map[string]string{FieldDescription: "a[?"}}},
		{name: "nothing displayable", mapping: Mapping{Name: "x", Version: 1, Fields: map[string]string{FieldEPC: "tag"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.mapping)
			assert.ErrorIs(t, err, ErrInvalidMapping)
		})
	}
}

func TestRegistryVersions(t *testing.T) {
	r := NewRegistry()

	v2 := Mapping{Name: "feed", Version: 2, Fields: map[string]string{FieldLocation: "loc"}}
	require.NoError(t, r.Register(v2))

	v1 := Mapping{Name: "feed", Version: 1, Fields: map[string]string{FieldLocation: "loc"}}
	assert.ErrorIs(t, r.Register(v1), ErrInvalidMapping)

	m, err := r.Get("feed")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Version)
	assert.Equal(t, []string{"feed", DefaultMappingName}, r.Names())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownMapping)
}
