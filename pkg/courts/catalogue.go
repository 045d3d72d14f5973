// Package courts holds the catalogue of courts recognised by Find Case
// Law and routes neutral citation components to canonical URL paths.
package courts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed courts.yaml
var catalogueYAML []byte

// Division is a division, chamber or jurisdiction of a court that has
// its own URL path, e.g. the Commercial Court within EWHC.
type Division struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Court is one catalogue entry.
type Court struct {
	Code      string     `yaml:"code"`
	Name      string     `yaml:"name"`
	Path      string     `yaml:"path"`
	Divisions []Division `yaml:"divisions"`
}

// UnknownCourtError reports a court (or court/division pair) that the
// catalogue cannot route to a URL path.
type UnknownCourtError struct {
	Court    string
	Division string
}

func (e *UnknownCourtError) Error() string {
	if e.Division != "" {
		return fmt.Sprintf("court %q has no division %q in the court catalogue", e.Court, e.Division)
	}
	return fmt.Sprintf("court %q is not in the court catalogue", e.Court)
}

// Catalogue is an indexed court list.
type Catalogue struct {
	courts []Court
	byCode map[string]*Court
}

type catalogueFile struct {
	Courts []Court `yaml:"courts"`
}

// Load parses a YAML catalogue.
func Load(raw []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse court catalogue: %w", err)
	}
	c := &Catalogue{
		courts: file.Courts,
		byCode: make(map[string]*Court, len(file.Courts)),
	}
	for i := range c.courts {
		c.byCode[strings.ToUpper(c.courts[i].Code)] = &c.courts[i]
	}
	return c, nil
}

var (
	defaultOnce      sync.Once
	defaultCatalogue *Catalogue
)

// Default returns the catalogue embedded in the library.
func Default() *Catalogue {
	defaultOnce.Do(func() {
		c, err := Load(catalogueYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded court catalogue is invalid: %v", err))
		}
		defaultCatalogue = c
	})
	return defaultCatalogue
}

// ByCode looks up a court by its citation code, case-insensitively.
func (c *Catalogue) ByCode(code string) (*Court, bool) {
	court, ok := c.byCode[strings.ToUpper(code)]
	return court, ok
}

// IsValidCourtCode reports whether identifier, either "court" or
// "court/division", names a known court.
func (c *Catalogue) IsValidCourtCode(identifier string) bool {
	if identifier == "" {
		return false
	}
	courtCode, divisionCode, hasDivision := strings.Cut(identifier, "/")
	court, ok := c.ByCode(courtCode)
	if !ok {
		return false
	}
	if !hasDivision {
		return true
	}
	_, ok = court.division(divisionCode)
	return ok
}

// PathFor routes neutral citation components to the canonical URL path
// of the deciding court. The division is the token before the number
// ("[2023] EWCA Civ 5") and the jurisdiction is the parenthesised token
// after it ("[2022] EWHC 1 (Comm)"); at most one of the two is set for
// any real citation.
func (c *Catalogue) PathFor(courtCode, division, jurisdiction string) (string, error) {
	court, ok := c.ByCode(courtCode)
	if !ok {
		return "", &UnknownCourtError{Court: courtCode}
	}
	sub := division
	if sub == "" {
		sub = jurisdiction
	}
	if sub == "" {
		return court.Path, nil
	}
	d, ok := court.division(sub)
	if !ok {
		return "", &UnknownCourtError{Court: courtCode, Division: sub}
	}
	return d.Path, nil
}

func (court *Court) division(code string) (*Division, bool) {
	for i := range court.Divisions {
		if strings.EqualFold(court.Divisions[i].Code, code) {
			return &court.Divisions[i], true
		}
	}
	return nil, false
}
