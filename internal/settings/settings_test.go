package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topacademybot/internal/config"
)

func TestMergeSubmission(t *testing.T) {
	current := config.Default()

	raw := json.RawMessage(`{
		"zoom_level": "90%",
		"progress_page_pattern": "https://journal\\.top-academy\\.ru/ru/main/progress/.*",
		"auto_rate_enabled": false,
		"auto_submit_enabled": true
	}`)

	cfg, err := MergeSubmission(current, raw)
	require.NoError(t, err)
	assert.Equal(t, "90%", cfg.ZoomLevel)
	assert.Equal(t, `https://journal\.top-academy\.ru/ru/main/progress/.*`, cfg.ProgressPagePattern)
	assert.False(t, cfg.AutoRateEnabled)
	assert.True(t, cfg.AutoSubmitEnabled)
}

func TestMergeSubmissionKeepsCurrentOnEmptyFields(t *testing.T) {
	current := config.Default()
	current.ZoomLevel = "75%"

	cfg, err := MergeSubmission(current, json.RawMessage(`{"zoom_level": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "75%", cfg.ZoomLevel)
	assert.Equal(t, current.ProgressPagePattern, cfg.ProgressPagePattern)
}

func TestMergeSubmissionRejectsBadPattern(t *testing.T) {
	current := config.Default()

	cfg, err := MergeSubmission(current, json.RawMessage(`{"progress_page_pattern": "[unclosed"}`))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProgressPagePattern, cfg.ProgressPagePattern)
}

func TestMergeSubmissionUndecodablePayload(t *testing.T) {
	_, err := MergeSubmission(config.Default(), json.RawMessage(`not json`))
	assert.Error(t, err)
}
