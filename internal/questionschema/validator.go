// Package questionschema validates question configuration payloads per question type.
package questionschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/questionbank-api/internal/models"
)

const schemaBaseURL = "https://schemas.questionbank.local/"

//go:embed schemas/*.json
var schemaFiles embed.FS

var schemaNames = map[models.QuestionType]string{
	models.QuestionTypeMCQ:           "mcq.json",
	models.QuestionTypeTrueFalse:     "true_false.json",
	models.QuestionTypeEssayShort:    "essay.json",
	models.QuestionTypeEssayLong:     "essay.json",
	models.QuestionTypeFillInBlank:   "fill_in_blank.json",
	models.QuestionTypeMatching:      "matching.json",
	models.QuestionTypeRearrange:     "rearrange.json",
	models.QuestionTypeSlider:        "slider.json",
	models.QuestionTypeSelectOnPhoto: "select_on_photo.json",
	models.QuestionTypePuzzle:        "puzzle.json",
	models.QuestionTypeCoding:        "coding.json",
}

// ErrInvalidConfiguration is returned when a configuration does not satisfy its type's rules.
var ErrInvalidConfiguration = errors.New("invalid question configuration")

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Type     models.QuestionType
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Type, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

type semanticCheck func(config map[string]interface{}) []string

// Validator checks configurations against the compiled schema of their question type followed
// by the rules a schema cannot express.
type Validator struct {
	schemas   map[models.QuestionType]*jsonschema.Schema
	semantics map[models.QuestionType]semanticCheck
}

// New compiles the embedded schemas. languages restricts the language of coding questions.
func New(languages []string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	for _, entry := range entries {
		data, err := schemaFiles.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", entry.Name(), err)
		}
	}

	schemas := make(map[models.QuestionType]*jsonschema.Schema, len(schemaNames))
	for questionType, name := range schemaNames {
		schema, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		schemas[questionType] = schema
	}

	allowed := make(map[string]struct{}, len(languages))
	for _, language := range languages {
		allowed[strings.ToLower(strings.TrimSpace(language))] = struct{}{}
	}

	return &Validator{
		schemas: schemas,
		semantics: map[models.QuestionType]semanticCheck{
			models.QuestionTypeMCQ:           checkMCQ,
			models.QuestionTypeEssayShort:    checkEssay,
			models.QuestionTypeEssayLong:     checkEssay,
			models.QuestionTypeFillInBlank:   checkFillInBlank,
			models.QuestionTypeMatching:      checkMatching,
			models.QuestionTypeRearrange:     checkRearrange,
			models.QuestionTypeSlider:        checkSlider,
			models.QuestionTypeSelectOnPhoto: checkSelectOnPhoto,
			models.QuestionTypeCoding:        codingCheck(allowed),
		},
	}, nil
}

// Validate returns nil when raw is a valid configuration for the question type.
func (v *Validator) Validate(questionType models.QuestionType, raw []byte) error {
	schema, ok := v.schemas[questionType]
	if !ok {
		return &ValidationError{Type: questionType, Problems: []string{"unsupported question type"}}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ValidationError{Type: questionType, Problems: []string{"configuration data cannot be empty"}}
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return &ValidationError{Type: questionType, Problems: []string{"configuration data must be valid JSON"}}
	}

	if err := schema.Validate(document); err != nil {
		return &ValidationError{Type: questionType, Problems: schemaProblems(err)}
	}

	check, ok := v.semantics[questionType]
	if !ok {
		return nil
	}
	config, _ := document.(map[string]interface{})
	if problems := check(config); len(problems) > 0 {
		return &ValidationError{Type: questionType, Problems: problems}
	}
	return nil
}

func schemaProblems(err error) []string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}

	var problems []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			problems = append(problems, fmt.Sprintf("%s: %s", location, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	return problems
}
