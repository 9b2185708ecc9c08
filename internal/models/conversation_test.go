package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversation_SetStage_RecordsPreviousStage(t *testing.T) {
	c := &Conversation{Stage: StageInitialContact}
	c.SetStage(StageQualification)

	assert.Equal(t, StageQualification, c.Stage)
	assert.Equal(t, string(StageInitialContact), c.Metadata["previous_stage"])
}

func TestConversation_SetStage_PreservesExistingMetadata(t *testing.T) {
	c := &Conversation{Stage: StageQualification, Metadata: JSONMap{"source": "website"}}
	c.SetStage(StageProposal)

	assert.Equal(t, "website", c.Metadata["source"])
	assert.Equal(t, string(StageQualification), c.Metadata["previous_stage"])
}

func TestConversation_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := &Conversation{FirstMessageAt: start, LastMessageAt: start.Add(45 * time.Minute)}
	assert.Equal(t, 45*time.Minute, c.Duration())
}
