package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ActualsFile is the bulk-entry format for actual values. YAML and JSON are
// both accepted.
//
//	target_id: 7f3c2a10-...
//	plans:
//	  - id: plan-acq-01
//	    values:
//	      actual_quantity: 100
type ActualsFile struct {
	TargetID string        `yaml:"target_id"`
	Plans    []PlanActuals `yaml:"plans"`
}

// PlanActuals holds the values for one plan, keyed by actual column. Values
// are kept as written so that bad input reaches validation unchanged.
type PlanActuals struct {
	ID     string            `yaml:"id"`
	Values map[string]string `yaml:"values"`
}

// LoadActualsFile reads and parses an actuals file.
func LoadActualsFile(path string) (*ActualsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading actuals file: %w", err)
	}
	return ParseActuals(data)
}

// ParseActuals parses an actuals document.
func ParseActuals(data []byte) (*ActualsFile, error) {
	var f ActualsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing actuals file: %w", err)
	}
	return &f, nil
}
