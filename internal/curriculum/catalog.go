package curriculum

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

//go:embed catalog.schema.json
var catalogSchema []byte

// Catalog is the static grade-to-curriculum table. It is loaded once and
// never mutated; Select hands out deep copies.
type Catalog struct {
	curricula map[GradeLevel]Curriculum
}

// LoadCatalog parses and validates the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding catalog for validation: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}

	var parsed struct {
		Curricula map[GradeLevel]Curriculum `yaml:"curricula"`
	}
	if err := yaml.Unmarshal(catalogYAML, &parsed); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	return &Catalog{curricula: parsed.Curricula}, nil
}

// Select returns an independent deep copy of the curriculum for a grade.
// Later mutation of the returned value never aliases the catalog entry.
func (c *Catalog) Select(grade GradeLevel) (Curriculum, error) {
	cur, ok := c.curricula[grade]
	if !ok {
		return Curriculum{}, fmt.Errorf("unknown grade level: %s", grade)
	}
	return cur.Clone(), nil
}

// Titles returns the curriculum title per grade, for selection screens.
func (c *Catalog) Titles() map[GradeLevel]string {
	titles := make(map[GradeLevel]string, len(c.curricula))
	for g, cur := range c.curricula {
		titles[g] = cur.Title
	}
	return titles
}
