// Package undiscovered turns rows of an external reconciliation feed into
// typed records using named, versioned JMESPath column mappings, and projects
// those records onto asset-shaped display fields.
package undiscovered

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/Farcas-Consult/rams-sub000/pkg/utils"
)

// Target fields a mapping can populate
const (
	FieldMaterialDescription           = "materialDescription"
	FieldDescription                   = "description"
	FieldFunctionalLocationDescription = "functionalLocationDescription"
	FieldFunctionalLocation            = "functionalLocation"
	FieldLocation                      = "location"
	FieldEquipmentNumber               = "equipmentNumber"
	FieldEPC                           = "epc"
)

const DefaultMappingName = "sap-v1"

var (
	ErrInvalidMapping = errors.New("invalid mapping")
	ErrUnknownMapping = errors.New("unknown mapping")
)

var (
	nameFields     = []string{FieldMaterialDescription, FieldDescription}
	locationFields = []string{FieldFunctionalLocationDescription, FieldFunctionalLocation, FieldLocation}
)

// Mapping binds target fields to JMESPath expressions evaluated against one
// payload row
type Mapping struct {
	Name    string            `json:"name" validate:"required"`
	Version int               `json:"version" validate:"gte=1"`
	Fields  map[string]string `json:"fields" validate:"required,min=1,dive,keys,oneof=materialDescription description functionalLocationDescription functionalLocation location equipmentNumber epc,endkeys,required"`
}

// DefaultMapping reads the column headers of the SAP equipment export
func DefaultMapping() Mapping {
	return Mapping{
		Name:    DefaultMappingName,
		Version: 1,
		Fields: map[string]string{
			FieldMaterialDescription:           `"Material Description"`,
			FieldDescription:                   `"Description"`,
			FieldFunctionalLocationDescription: `"Functional Location Description"`,
			FieldFunctionalLocation:            `"Functional Location"`,
			FieldLocation:                      `"Location"`,
			FieldEquipmentNumber:               `"Equipment"`,
			FieldEPC:                           `"EPC"`,
		},
	}
}

// CompiledMapping is a validated mapping ready to extract records
type CompiledMapping struct {
	Mapping
	exprs map[string]*jmespath.JMESPath
}

// Compile validates m and compiles its expressions
func Compile(m Mapping) (*CompiledMapping, error) {
	if _, err := utils.Validate(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if !hasAny(m.Fields, nameFields) && !hasAny(m.Fields, locationFields) {
		return nil, fmt.Errorf("%w: %s maps neither a name field nor a location field", ErrInvalidMapping, m.Name)
	}

	exprs := make(map[string]*jmespath.JMESPath, len(m.Fields))
	for field, expression := range m.Fields {
		compiled, err := jmespath.Compile(expression)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: expression %q: %v", ErrInvalidMapping, field, expression, err)
		}
		exprs[field] = compiled
	}

	return &CompiledMapping{Mapping: m, exprs: exprs}, nil
}

func hasAny(fields map[string]string, names []string) bool {
	for _, n := range names {
		if _, ok := fields[n]; ok {
			return true
		}
	}
	return false
}

// Extract evaluates every mapped field against payload. Missing keys give
// nil fields, never errors.
func (m *CompiledMapping) Extract(payload map[string]any) (Record, error) {
	var rec Record
	for field, expr := range m.exprs {
		result, err := expr.Search(payload)
		if err != nil {
			return Record{}, fmt.Errorf("mapping %s field %s: %w", m.Name, field, err)
		}
		setField(&rec, field, toText(result))
	}
	return rec, nil
}

func toText(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Registry holds the mappings known to the process
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]*CompiledMapping
}

// NewRegistry returns a registry holding DefaultMapping
func NewRegistry() *Registry {
	r := &Registry{mappings: make(map[string]*CompiledMapping)}
	if err := r.Register(DefaultMapping()); err != nil {
		panic(err)
	}
	return r
}

// Register compiles m and stores it under its name, replacing an older
// version. A lower version than the registered one is rejected.
func (r *Registry) Register(m Mapping) error {
	compiled, err := Compile(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.mappings[m.Name]; ok && existing.Version > m.Version {
		return fmt.Errorf("%w: %s version %d is older than registered version %d", ErrInvalidMapping, m.Name, m.Version, existing.Version)
	}
	r.mappings[m.Name] = compiled
	return nil
}

func (r *Registry) Get(name string) (*CompiledMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMapping, name)
	}
	return m, nil
}

// Names lists registered mappings in order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
