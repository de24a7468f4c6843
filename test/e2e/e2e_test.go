//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptDefaultResponses(env *E2ETestEnv, answer string) {
	env.Chat.Respond("extracting temporal information",
		`{"temporal_scope": {"type": "none"}, "topics": ["work"], "entities": [], "subtasks": "Find recent work"}`)
	env.Chat.Respond("knowledgeable AI assistant", answer)
	env.Chat.Respond("evaluator checking answer quality", `{"adequate": true}`)
}

func TestE2E_Health(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, status, err := env.Get("/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "ok", data["status"])
}

func TestE2E_QueryFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	now := time.Now().UTC()
	sourceID := env.SeedSource(env.UserID, domain.EventTypeText, "Daily notes", now.Add(-48*time.Hour))
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText,
		"Reviewed the launch plan with the platform team", now.Add(-24*time.Hour), axisVector(0))
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText,
		"Booked travel for the offsite", now.Add(-24*time.Hour), axisVector(1))

	scriptDefaultResponses(env, "You reviewed the launch plan with the platform team.")

	resp, status, err := env.Post("/query", map[string]any{
		"user_id":  env.UserID,
		"question": "what did I work on yesterday?",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, "error: %s", resp.Error)

	var queryResp struct {
		Answer         string `json:"answer"`
		Confidence     float64
		TimelineChunks []struct {
			Text           string  `json:"text"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"timeline_chunks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &queryResp))

	assert.Equal(t, "You reviewed the launch plan with the platform team.", queryResp.Answer)
	require.NotEmpty(t, queryResp.TimelineChunks)
	// The query embedding matches the first event's vector exactly, so it
	// ranks first with similarity 1.
	assert.Contains(t, queryResp.TimelineChunks[0].Text, "launch plan")
	assert.InDelta(t, 1.0, queryResp.TimelineChunks[0].RelevanceScore, 0.001)

	// The exchange is logged against today's session.
	sessionResp, status, err := env.Get(fmt.Sprintf("/sessions/interactions?user_id=%d", env.UserID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var session struct {
		Interactions []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"interactions"`
	}
	require.NoError(t, json.Unmarshal(sessionResp.Data, &session))
	require.Len(t, session.Interactions, 1)
	assert.Equal(t, "what did I work on yesterday?", session.Interactions[0].Question)
	assert.Equal(t, "You reviewed the launch plan with the platform team.", session.Interactions[0].Answer)
}

func TestE2E_QueryValidation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, status, err := env.Post("/query", map[string]any{
		"user_id":  env.UserID,
		"question": "",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, resp.Error)
}

func TestE2E_SourcesListAndDownload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	env.SeedSource(env.UserID, domain.EventTypeDocument, "First doc", base)
	env.SeedSource(env.UserID, domain.EventTypeAudio, "Standup recording", base.Add(24*time.Hour))
	latest := env.SeedSource(env.UserID, domain.EventTypeDocument, "Latest doc", base.Add(48*time.Hour))

	resp, status, err := env.Get(fmt.Sprintf("/sources/?user_id=%d&limit=2", env.UserID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var page struct {
		Sources []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"sources"`
		Cursor  string `json:"cursor"`
		HasMore bool   `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Sources, 2)
	assert.Equal(t, latest, page.Sources[0].ID)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.Cursor)

	resp, status, err = env.Get(fmt.Sprintf("/sources/?user_id=%d&limit=2&cursor=%s", env.UserID, page.Cursor))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Sources, 1)
	assert.Equal(t, "First doc", page.Sources[0].Title)
	assert.False(t, page.HasMore)

	// Artifact storage is not configured in this environment.
	resp, status, err = env.Get(fmt.Sprintf("/sources/%d/download?user_id=%d", latest, env.UserID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotEmpty(t, resp.Error)
}

func TestE2E_Timeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	sourceID := env.SeedSource(env.UserID, domain.EventTypeText, "Notes", time.Now().UTC())
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText, "morning entry",
		time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), nil)
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText, "evening entry",
		time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC), nil)
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText, "next day entry",
		time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC), nil)

	resp, status, err := env.Get(fmt.Sprintf("/timeline?user_id=%d&start=2024-06-10&end=2024-06-11", env.UserID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var days []struct {
		Date   string `json:"date"`
		Events []struct {
			Text string `json:"text"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &days))
	require.Len(t, days, 2)
	assert.Equal(t, "2024-06-10", days[0].Date)
	assert.Len(t, days[0].Events, 2)
	assert.Equal(t, "2024-06-11", days[1].Date)
	assert.Len(t, days[1].Events, 1)
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	now := time.Now().UTC()
	sourceID := env.SeedSource(env.UserID, domain.EventTypeText, "Daily notes", now.Add(-48*time.Hour))
	env.SeedEvent(env.UserID, sourceID, domain.EventTypeText,
		"Merged the retry logic", now.Add(-24*time.Hour), axisVector(0))

	scriptDefaultResponses(env, "You merged the retry logic.")

	workDir := t.TempDir()

	out, err := env.RunChronicle(workDir, "ask", "what did I do?")
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "You merged the retry logic.")
	assert.Contains(t, out, "Confidence: 0.85")

	out, err = env.RunChronicle(workDir, "sources", "list")
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "Daily notes")

	out, err = env.RunChronicle(workDir, "session")
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "Q: what did I do?")
}
