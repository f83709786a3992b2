package models

import (
	"errors"
	"strings"
)

// ErrUnknownAnswerType indicates the value does not name a supported answer type.
var ErrUnknownAnswerType = errors.New("unknown answer type")

// AnswerType enumerates the ways a student can submit an answer.
type AnswerType string

const (
	AnswerTypeMultipleChoice AnswerType = "MULTIPLE_CHOICE"
	AnswerTypeFillInBlank    AnswerType = "FILL_IN_BLANK"
	AnswerTypeShortAnswer    AnswerType = "SHORT_ANSWER"
	AnswerTypeLongAnswer     AnswerType = "LONG_ANSWER"
	AnswerTypeVideoAnswer    AnswerType = "VIDEO_ANSWER"
	AnswerTypeVoiceAnswer    AnswerType = "VOICE_ANSWER"
	AnswerTypePDFUpload      AnswerType = "PDF_UPLOAD"
	AnswerTypeImageUpload    AnswerType = "IMAGE_UPLOAD"
	AnswerTypeVideoUpload    AnswerType = "VIDEO_UPLOAD"
	AnswerTypeVoiceUpload    AnswerType = "VOICE_UPLOAD"
	AnswerTypeCodeSubmission AnswerType = "CODE_SUBMISSION"
	AnswerTypeTrueFalse      AnswerType = "TRUE_FALSE"
	AnswerTypeMatching       AnswerType = "MATCHING"
	AnswerTypeRearrange      AnswerType = "REARRANGE"
	AnswerTypeSlider         AnswerType = "SLIDER"
	AnswerTypePuzzle         AnswerType = "PUZZLE"
)

var answerTypes = []struct {
	value AnswerType
	label string
}{
	{AnswerTypeMultipleChoice, "Multiple Choice"},
	{AnswerTypeFillInBlank, "Fill in the Blank"},
	{AnswerTypeShortAnswer, "Short Answer"},
	{AnswerTypeLongAnswer, "Long Answer"},
	{AnswerTypeVideoAnswer, "Video Answer"},
	{AnswerTypeVoiceAnswer, "Voice Answer"},
	{AnswerTypePDFUpload, "PDF Upload"},
	{AnswerTypeImageUpload, "Image Upload"},
	{AnswerTypeVideoUpload, "Video Upload"},
	{AnswerTypeVoiceUpload, "Voice Upload"},
	{AnswerTypeCodeSubmission, "Code Submission"},
	{AnswerTypeTrueFalse, "True/False"},
	{AnswerTypeMatching, "Matching"},
	{AnswerTypeRearrange, "Rearrange"},
	{AnswerTypeSlider, "Slider"},
	{AnswerTypePuzzle, "Puzzle"},
}

// ParseAnswerType resolves an answer type from its constant or display name.
func ParseAnswerType(value string) (AnswerType, error) {
	trimmed := strings.TrimSpace(value)
	for _, entry := range answerTypes {
		if strings.EqualFold(string(entry.value), trimmed) || strings.EqualFold(entry.label, trimmed) {
			return entry.value, nil
		}
	}
	return "", ErrUnknownAnswerType
}

// DisplayName returns the human readable label.
func (t AnswerType) DisplayName() string {
	for _, entry := range answerTypes {
		if entry.value == t {
			return entry.label
		}
	}
	return string(t)
}

// HasTextContent reports whether the content is free text that can be checked for copying.
func (t AnswerType) HasTextContent() bool {
	return t == AnswerTypeShortAnswer || t == AnswerTypeLongAnswer || t == AnswerTypeCodeSubmission
}

// IsCodeSubmission reports whether the answer carries source code.
func (t AnswerType) IsCodeSubmission() bool {
	return t == AnswerTypeCodeSubmission
}
