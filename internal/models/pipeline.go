package models

type PipelineStatus string

const (
	PipelineIdle       PipelineStatus = "idle"
	PipelineLoading    PipelineStatus = "loading"
	PipelineProcessing PipelineStatus = "processing"
	PipelineCompleted  PipelineStatus = "completed"
	PipelineError      PipelineStatus = "error"
)

type PageStatus string

const (
	PagePending    PageStatus = "pending"
	PageProcessing PageStatus = "processing"
	PageCompleted  PageStatus = "completed"
	PageError      PageStatus = "error"
)

// PageRecord tracks the transcription state of a single page. Pages are
// 1-indexed. Status only ever moves pending -> processing -> completed/error;
// once terminal the record is not touched again for that run.
type PageRecord struct {
	PageNumber   int        `json:"page_number"`
	Status       PageStatus `json:"status"`
	Content      string     `json:"content"`
	PreviewImage []byte     `json:"preview_image,omitempty"`
}

// PipelineState is the aggregate snapshot of a transcription run. All pages
// are allocated as pending as soon as the page count is known, so observers
// can render a full skeleton before any extraction has happened.
type PipelineState struct {
	Status       PipelineStatus `json:"status"`
	TotalPages   int            `json:"total_pages"`
	CurrentPage  int            `json:"current_page"`
	Pages        []PageRecord   `json:"pages"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

func NewPipelineState() PipelineState {
	return PipelineState{Status: PipelineIdle}
}

// Clone returns a deep copy safe to hand to observers.
func (s PipelineState) Clone() PipelineState {
	out := s
	if s.Pages != nil {
		out.Pages = make([]PageRecord, len(s.Pages))
		copy(out.Pages, s.Pages)
		for i := range out.Pages {
			if s.Pages[i].PreviewImage != nil {
				out.Pages[i].PreviewImage = append([]byte(nil), s.Pages[i].PreviewImage...)
			}
		}
	}
	return out
}
