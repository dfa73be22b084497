package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	PageCount    int    `json:"page_count"`
}

type TranscribeRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

type TranscribeResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

type GradeRequest struct {
	SubmissionDocumentID string `json:"submission_document_id" validate:"required,uuid"`
	AnswerKeyDocumentID  string `json:"answer_key_document_id" validate:"required,uuid"`
}

type GradeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Report       *GradingReport `json:"report,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}
