package model

// SaveAnswerRequest records or replaces one answer.
type SaveAnswerRequest struct {
	QuestionID string   `json:"question_id" binding:"required,uuid"`
	Value      string   `json:"value" binding:"omitempty,max=10000"`
	Values     []string `json:"values" binding:"omitempty,max=100,dive,max=10000"`
}

// NavigateRequest moves the current question pointer to an index.
// Pointer so that index 0 still satisfies required.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}
