package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/SmartChainFlow/internal/domain"
)

// Форматы chain-файла.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Допустимые стратегии backoff.
var validBackoffs = map[string]bool{
	"":            true,
	"fixed":       true,
	"exponential": true,
}

// LoadSpecFile читает и парсит chain-файл.
// Путь "-" означает stdin (формат YAML, JSON является его подмножеством).
func LoadSpecFile(path string) (*domain.ChainSpec, error) {
	if path == "-" {
		return LoadSpec(os.Stdin, FormatYAML)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	spec, err := LoadSpec(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return spec, nil
}

// FormatFromPath определяет формат chain-файла по расширению.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadSpec читает chain spec из r в заданном формате.
func LoadSpec(r io.Reader, format string) (*domain.ChainSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read chain spec: %w", err)
	}
	return ParseSpec(data, format)
}

// ParseSpec парсит chain spec из байтов.
func ParseSpec(data []byte, format string) (*domain.ChainSpec, error) {
	var spec domain.ChainSpec

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("parse chain spec (json): %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			if err == io.EOF {
				return nil, ErrEmptySteps
			}
			return nil, fmt.Errorf("parse chain spec (yaml): %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &spec, nil
}

// Validate выполняет структурную валидацию ChainSpec.
//
// Проверяет:
//   - наличие шагов
//   - непустые ID
//   - известность типов (knownType)
//   - корректность таймаутов и retry политик
//
// Уникальность ID, ссылки depends_on и циклы проверяются позже
// реестром и BuildGraph.
func Validate(spec *domain.ChainSpec, knownType func(string) bool) error {
	if spec == nil || len(spec.Steps) == 0 {
		return ErrEmptySteps
	}

	if spec.Defaults != nil {
		if spec.Defaults.TimeoutSec < 0 {
			return NewValidationError("", "defaults.timeout_sec",
				"default timeout must not be negative", ErrInvalidConfig)
		}
		if err := validateRetry("", "defaults.retry", spec.Defaults.Retry); err != nil {
			return err
		}
	}

	for i := range spec.Steps {
		if err := ValidateStep(&spec.Steps[i], knownType); err != nil {
			return err
		}
	}

	return nil
}

// ValidateStep валидирует один шаг.
func ValidateStep(step *domain.StepDef, knownType func(string) bool) error {
	if step.ID == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}

	if step.Type == "" {
		return NewValidationError(step.ID, "type", "step has empty type", ErrUnknownStepType)
	}
	if knownType != nil && !knownType(step.Type) {
		return NewValidationError(step.ID, "type",
			fmt.Sprintf("unknown step type: %s", step.Type), ErrUnknownStepType)
	}

	if step.TimeoutSec < 0 {
		return NewValidationError(step.ID, "timeout_sec",
			"timeout must not be negative", ErrInvalidConfig)
	}

	return validateRetry(step.ID, "retry", step.Retry)
}

// validateRetry проверяет retry политику.
func validateRetry(stepID, field string, p *domain.RetryPolicy) error {
	if p == nil {
		return nil
	}
	if p.MaxAttempts < 0 {
		return NewValidationError(stepID, field,
			"max_attempts must not be negative", ErrInvalidConfig)
	}
	if p.InitialDelayMs < 0 || p.MaxDelayMs < 0 {
		return NewValidationError(stepID, field,
			"retry delays must not be negative", ErrInvalidConfig)
	}
	if !validBackoffs[p.Backoff] {
		return NewValidationError(stepID, field,
			fmt.Sprintf("unknown backoff: %s", p.Backoff), ErrInvalidConfig)
	}
	return nil
}
