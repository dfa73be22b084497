package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPipelineState(t *testing.T) {
	state := NewPipelineState()

	assert.Equal(t, PipelineIdle, state.Status)
	assert.Zero(t, state.TotalPages)
	assert.Zero(t, state.CurrentPage)
	assert.Empty(t, state.Pages)
	assert.Empty(t, state.ErrorMessage)
}

func TestPipelineStateCloneIsDeep(t *testing.T) {
	original := PipelineState{
		Status:      PipelineProcessing,
		TotalPages:  2,
		CurrentPage: 1,
		Pages: []PageRecord{
			{PageNumber: 1, Status: PageProcessing, PreviewImage: []byte{1, 2, 3}},
			{PageNumber: 2, Status: PagePending},
		},
	}

	clone := original.Clone()
	clone.Pages[0].Status = PageCompleted
	clone.Pages[0].Content = "mutated"
	clone.Pages[0].PreviewImage[0] = 99

	assert.Equal(t, PageProcessing, original.Pages[0].Status)
	assert.Empty(t, original.Pages[0].Content)
	assert.Equal(t, byte(1), original.Pages[0].PreviewImage[0])
}

func TestGradingReportItemSums(t *testing.T) {
	report := GradingReport{
		Items: []GradingItem{
			{Score: 4, MaxScore: 5},
			{Score: 2.5, MaxScore: 5},
		},
	}

	total, max := report.ItemSums()
	assert.Equal(t, 6.5, total)
	assert.Equal(t, 10.0, max)
}
