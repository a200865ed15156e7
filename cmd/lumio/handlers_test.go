package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumio-app/lumio/internal/progress"
	"github.com/lumio-app/lumio/internal/session"
	"github.com/lumio-app/lumio/internal/textmatch"
)

const testDeckJSON = `{
	"meta": {"title": "Analysis Basics", "due_date": "2099-01-01"},
	"questions": [
		{"type": "text", "id": "grad", "prompt": "Was ist ein Gradient?",
		 "rubric": [["gradient"], ["richtung"]], "min_words": 5,
		 "example": "Der Gradient zeigt die Richtung des steilsten Anstiegs."},
		{"type": "text", "id": "abl", "prompt": "Was ist eine Ableitung?",
		 "rubric": [["ableitung", "aenderungsrate"]], "min_words": 5}
	]
}`

// setupTestContext builds a session over a fixture deck and wraps it in the
// context the handlers expect.
func setupTestContext(t *testing.T) context.Context {
	t.Helper()
	dir := t.TempDir()
	deckPath := filepath.Join(dir, "analysis_basics.json")
	require.NoError(t, os.WriteFile(deckPath, []byte(testDeckJSON), 0644))

	decks, err := loadDecks(dir, "")
	require.NoError(t, err)

	store := progress.NewFileStore(filepath.Join(dir, "progress.json"))
	sess, err := session.NewWithLogger(decks, store, zap.NewNop())
	require.NoError(t, err)

	return context.WithValue(context.Background(), "session", sess)
}

// resultText extracts the JSON text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

func TestHandleListDecks(t *testing.T) {
	ctx := setupTestContext(t)

	result, err := handleListDecks(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	var response ListDecksResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	require.Len(t, response.Decks, 1)
	assert.Equal(t, "Analysis Basics", response.Decks[0].Title)
	assert.Equal(t, "analysis_basics.json", response.Decks[0].Key)
	assert.Equal(t, 2, response.Decks[0].Questions)
	assert.Equal(t, "2099-01-01", response.Decks[0].DueDate)
}

func TestHandleGetCurrentQuestion(t *testing.T) {
	ctx := setupTestContext(t)

	result, err := handleGetCurrentQuestion(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	var response QuestionResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.NotEmpty(t, response.Question.GlobalID)
	assert.NotEmpty(t, response.Question.Prompt)
	assert.Equal(t, "Analysis Basics", response.Question.DeckTitle)
	assert.Equal(t, 1, response.Stats.TotalToday, "due date far out: quota of 1 per day")
}

func TestHandleCheckAnswerPassAndFail(t *testing.T) {
	ctx := setupTestContext(t)

	// Failing answer first: too short, no rubric phrase.
	checkRequest := mcp.CallToolRequest{}
	checkRequest.Params.Arguments = map[string]interface{}{"answer": "keine Ahnung"}
	result, err := handleCheckAnswer(ctx, checkRequest)
	require.NoError(t, err)

	var failed CheckResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &failed))
	assert.False(t, failed.Passed)
	assert.Contains(t, failed.Feedback, "FAILED")
	assert.NotEmpty(t, failed.RubricDetail)
	assert.Equal(t, 1, failed.Result.Attempts)
	assert.Equal(t, 1, failed.Result.Fails)

	// The same question comes back; answer it with every rubric phrase.
	passing := "Der Gradient zeigt die Richtung des steilsten Anstiegs und die Ableitung die Änderungsrate."
	checkRequest.Params.Arguments = map[string]interface{}{"answer": passing}
	result, err = handleCheckAnswer(ctx, checkRequest)
	require.NoError(t, err)

	var passed CheckResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &passed))
	assert.True(t, passed.Passed)
	assert.Contains(t, passed.Feedback, "PASSED")
	assert.Equal(t, 1, passed.Result.Stats.DoneToday)
}

func TestHandleCheckAnswerMissingAnswer(t *testing.T) {
	ctx := setupTestContext(t)

	// No answer argument at all: scored as an empty answer, not an error.
	checkRequest := mcp.CallToolRequest{}
	checkRequest.Params.Arguments = map[string]interface{}{}
	result, err := handleCheckAnswer(ctx, checkRequest)
	require.NoError(t, err)

	var response CheckResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.False(t, response.Passed)
	assert.Equal(t, 0, response.Result.Score.WordCount)
}

func TestHandleResetSession(t *testing.T) {
	ctx := setupTestContext(t)

	resetRequest := mcp.CallToolRequest{}
	resetRequest.Params.Arguments = map[string]interface{}{"scope": "all"}
	result, err := handleResetSession(ctx, resetRequest)
	require.NoError(t, err)

	var response ResetResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 0, response.Stats.TotalMastered)
}

func TestHandleResetSessionInvalidScope(t *testing.T) {
	ctx := setupTestContext(t)

	resetRequest := mcp.CallToolRequest{}
	resetRequest.Params.Arguments = map[string]interface{}{"scope": "everything"}
	result, err := handleResetSession(ctx, resetRequest)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Invalid scope")
}

func TestHandleSessionStats(t *testing.T) {
	ctx := setupTestContext(t)

	result, err := handleSessionStats(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	var response StatsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.NotEmpty(t, response.SessionID)
	assert.Equal(t, 2, response.Stats.TotalQuestions)
}

func TestHandlersWithoutSession(t *testing.T) {
	result, err := handleGetCurrentQuestion(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Session not available")
}

func TestLoadDecksSelection(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name),
			[]byte(`[{"type":"text","prompt":"p?","rubric":[["x"]]}]`), 0644))
	}

	decks, err := loadDecks(dir, "b.json")
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "b.json", decks[0].Key)

	_, err = loadDecks(dir, "missing.json")
	assert.Error(t, err)
}

// A single bad deck aborts the whole load rather than being dropped.
func TestLoadDecksAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"),
		[]byte(`[{"type":"text","prompt":"p?","rubric":[["x"]]}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"),
		[]byte(`[{"type":"text","prompt":"p?","rubric":[]}]`), 0644))

	_, err := loadDecks(dir, "")
	assert.Error(t, err)
}

func TestFormatRubricDetail(t *testing.T) {
	rubric := [][]string{{"gradient", "steigung"}, {"richtung"}}
	groups := []textmatch.GroupMatch{
		{Hit: true, Phrase: "steigung"},
		{Hit: false},
	}

	lines := formatRubricDetail(rubric, groups)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✅ gradient")
	assert.Contains(t, lines[0], `"steigung"`)
	assert.Contains(t, lines[1], "❌ richtung")
}

func TestFormatSolution(t *testing.T) {
	assert.Equal(t, "(no example answer provided)", formatSolution(""))
	assert.Equal(t, "Eine Beispielantwort.", formatSolution("Eine Beispielantwort."))
}
