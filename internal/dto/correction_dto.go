package dto

import "github.com/google/uuid"

// BatchCorrectionRequest lists the answers to correct.
type BatchCorrectionRequest struct {
	AnswerIDs []string `json:"answer_ids" validate:"required,min=1,max=100,dive,uuid"`
}

// CorrectionResponse is the result of correcting one answer.
type CorrectionResponse struct {
	Answer AnswerResponse `json:"answer"`
	State  string         `json:"state"`
	Method string         `json:"method,omitempty"`
}

// BatchCorrectionItem is one slot of a batch response.
type BatchCorrectionItem struct {
	AnswerID uuid.UUID       `json:"answer_id"`
	Success  bool            `json:"success"`
	Answer   *AnswerResponse `json:"answer,omitempty"`
	State    string          `json:"state,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchCorrectionResponse summarises a batch.
type BatchCorrectionResponse struct {
	Items     []BatchCorrectionItem `json:"items"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}
