package models

import (
	"errors"
	"strings"
)

// ErrUnknownQuestionType indicates the value does not name a supported question type.
var ErrUnknownQuestionType = errors.New("unknown question type")

// QuestionType enumerates the supported question variants.
type QuestionType string

const (
	QuestionTypeMCQ           QuestionType = "MCQ"
	QuestionTypeTrueFalse     QuestionType = "TRUE_FALSE"
	QuestionTypeEssayShort    QuestionType = "ESSAY_SHORT"
	QuestionTypeEssayLong     QuestionType = "ESSAY_LONG"
	QuestionTypeFillInBlank   QuestionType = "FILL_IN_BLANK"
	QuestionTypeMatching      QuestionType = "MATCHING"
	QuestionTypeRearrange     QuestionType = "REARRANGE"
	QuestionTypeSlider        QuestionType = "SLIDER"
	QuestionTypeSelectOnPhoto QuestionType = "SELECT_ON_PHOTO"
	QuestionTypePuzzle        QuestionType = "PUZZLE"
	QuestionTypeCoding        QuestionType = "CODING"
)

var questionTypeNames = map[QuestionType]string{
	QuestionTypeMCQ:           "Multiple Choice Question",
	QuestionTypeTrueFalse:     "True/False",
	QuestionTypeEssayShort:    "Short Essay",
	QuestionTypeEssayLong:     "Long Essay",
	QuestionTypeFillInBlank:   "Fill in the Blank",
	QuestionTypeMatching:      "Matching",
	QuestionTypeRearrange:     "Rearrange",
	QuestionTypeSlider:        "Slider",
	QuestionTypeSelectOnPhoto: "Select on Photo",
	QuestionTypePuzzle:        "Puzzle",
	QuestionTypeCoding:        "Coding",
}

var expectedAnswerTypes = map[QuestionType]AnswerType{
	QuestionTypeMCQ:           AnswerTypeMultipleChoice,
	QuestionTypeTrueFalse:     AnswerTypeTrueFalse,
	QuestionTypeEssayShort:    AnswerTypeShortAnswer,
	QuestionTypeEssayLong:     AnswerTypeLongAnswer,
	QuestionTypeFillInBlank:   AnswerTypeFillInBlank,
	QuestionTypeMatching:      AnswerTypeMatching,
	QuestionTypeRearrange:     AnswerTypeRearrange,
	QuestionTypeSlider:        AnswerTypeSlider,
	QuestionTypeSelectOnPhoto: AnswerTypeMultipleChoice,
	QuestionTypePuzzle:        AnswerTypePuzzle,
	QuestionTypeCoding:        AnswerTypeCodeSubmission,
}

// AllQuestionTypes lists every question variant in declaration order.
func AllQuestionTypes() []QuestionType {
	return []QuestionType{
		QuestionTypeMCQ,
		QuestionTypeTrueFalse,
		QuestionTypeEssayShort,
		QuestionTypeEssayLong,
		QuestionTypeFillInBlank,
		QuestionTypeMatching,
		QuestionTypeRearrange,
		QuestionTypeSlider,
		QuestionTypeSelectOnPhoto,
		QuestionTypePuzzle,
		QuestionTypeCoding,
	}
}

// DeterministicQuestionTypes lists the variants graded from preset answers.
func DeterministicQuestionTypes() []QuestionType {
	types := make([]QuestionType, 0, 8)
	for _, t := range AllQuestionTypes() {
		if t.RequiresPresetAnswers() {
			types = append(types, t)
		}
	}
	return types
}

// ParseQuestionType resolves a question type from its constant or display name.
func ParseQuestionType(value string) (QuestionType, error) {
	trimmed := strings.TrimSpace(value)
	for _, t := range AllQuestionTypes() {
		if strings.EqualFold(string(t), trimmed) || strings.EqualFold(questionTypeNames[t], trimmed) {
			return t, nil
		}
	}
	return "", ErrUnknownQuestionType
}

// Valid reports whether t is one of the declared variants.
func (t QuestionType) Valid() bool {
	_, ok := questionTypeNames[t]
	return ok
}

// DisplayName returns the human readable label.
func (t QuestionType) DisplayName() string {
	return questionTypeNames[t]
}

// RequiresPresetAnswers reports whether the type is graded against a configured answer key.
func (t QuestionType) RequiresPresetAnswers() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeFillInBlank, QuestionTypeMatching,
		QuestionTypeRearrange, QuestionTypeSlider, QuestionTypeSelectOnPhoto, QuestionTypePuzzle:
		return true
	default:
		return false
	}
}

// SupportsAI reports whether the type is routed to the AI grader.
func (t QuestionType) SupportsAI() bool {
	switch t {
	case QuestionTypeEssayShort, QuestionTypeEssayLong, QuestionTypeCoding:
		return true
	default:
		return false
	}
}

// ExpectedAnswerType returns the answer type a submission for this question must carry.
func (t QuestionType) ExpectedAnswerType() AnswerType {
	return expectedAnswerTypes[t]
}
