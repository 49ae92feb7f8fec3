package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
)

// File is the on-disk layout of a rules file.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads rules from a YAML file. An empty path yields the default rule.
func LoadFile(path string) (*Evaluator, error) {
	if path == "" {
		return NewEvaluator(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML rules and validates them.
func Parse(data []byte) (*Evaluator, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}
	return NewEvaluator(file.Rules...), nil
}

// Validate checks every rule has a name and at least one field to set.
func (f *File) Validate() error {
	var errs []string
	seen := make(map[string]bool, len(f.Rules))

	for i, rule := range f.Rules {
		if rule.Name == "" {
			errs = append(errs, fmt.Sprintf("rules[%d]: name is required", i))
		} else if seen[rule.Name] {
			errs = append(errs, fmt.Sprintf("rules[%d]: duplicate name %q", i, rule.Name))
		}
		seen[rule.Name] = true

		if len(rule.Set) == 0 {
			errs = append(errs, fmt.Sprintf("rules[%d]: set must contain at least one field", i))
		}
		if rule.Match.Status != nil && !rule.Match.Status.IsValid() {
			errs = append(errs, fmt.Sprintf("rules[%d]: unknown status %d", i, *rule.Match.Status))
		}
		// priority_below p matches priorities 1..p-1, so p-1 must be a real
		// priority. Urgent+1 matches every ticket.
		if below := rule.Match.PriorityBelow; below != nil && !(*below - 1).IsValid() {
			errs = append(errs, fmt.Sprintf("rules[%d]: priority_below must be between %d and %d, got %d",
				i, domain.PriorityLow+1, domain.PriorityUrgent+1, *below))
		}
	}

	if len(errs) > 0 {
		return errors.New("rule errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
