// Package order parses algorithm run-order definitions.
//
// A definition is a small YAML document naming an algorithm version and
// the dataset it should run against:
//
//	algorithm:
//	  name: foo
//	  repository: org/foo
//	  version: v1
//	dataset:
//	  id: d1
package order

import (
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/sylva-labs/algorun/internal/ledger"
)

// definition mirrors the YAML shape of a run-order file.
type definition struct {
	Algorithm struct {
		Name       string `yaml:"name"`
		Repository string `yaml:"repository"`
		Version    string `yaml:"version"`
	} `yaml:"algorithm"`
	Dataset struct {
		ID string `yaml:"id"`
	} `yaml:"dataset"`
	LocalPath string `yaml:"localPath"`
}

// Parse turns one raw definition into a ledger.RunOrder. The raw source
// text is always preserved for audit; definitions that do not parse or
// do not validate come back with status INVALID instead of an error so
// they can still be recorded.
func Parse(sourceID, source string) *ledger.RunOrder {
	order := &ledger.RunOrder{
		SourceID: sourceID,
		Source:   source,
		Status:   ledger.OrderStatusCreated,
	}

	var def definition
	if err := yaml.Unmarshal([]byte(source), &def); err != nil {
		order.Status = ledger.OrderStatusInvalid
		return order
	}

	order.Algorithm = ledger.Algorithm{
		Name:       def.Algorithm.Name,
		Repository: def.Algorithm.Repository,
		Version:    def.Algorithm.Version,
	}
	order.Dataset = def.Dataset.ID
	order.LocalPath = def.LocalPath

	if err := Validate(order); err != nil {
		order.Status = ledger.OrderStatusInvalid
	}
	return order
}

// Validate checks the validity rule for run orders: all algorithm
// fields present and exactly one of dataset / local path set.
func Validate(order *ledger.RunOrder) error {
	if order.Algorithm.Name == "" || order.Algorithm.Repository == "" || order.Algorithm.Version == "" {
		return errors.New("algorithm name, repository and version are required")
	}
	if order.Dataset == "" && order.LocalPath == "" {
		return errors.New("one of dataset or localPath is required")
	}
	if order.Dataset != "" && order.LocalPath != "" {
		return errors.New("dataset and localPath are mutually exclusive")
	}
	return nil
}
