// Package main provides the Lumio quiz engine MCP service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lumio-app/lumio/internal/session"
	"github.com/lumio-app/lumio/internal/textmatch"
)

// sessionFromContext extracts the review session handlers operate on.
func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value("session").(*session.Session)
	return s, ok && s != nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleListDecks handles the list_decks tool request by enumerating the
// decks loaded into the session with their display names and due dates.
func handleListDecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Session not available"), nil
	}

	decks := s.Decks()
	response := ListDecksResponse{Decks: make([]DeckInfo, 0, len(decks))}
	for _, d := range decks {
		info := DeckInfo{
			File:      d.Path,
			Key:       d.Key,
			Title:     d.Title(),
			Questions: len(d.Questions),
		}
		if d.Meta.DueDate != nil {
			info.DueDate = d.Meta.DueDate.Format("2006-01-02")
		}
		response.Decks = append(response.Decks, info)
	}
	return jsonResult(response)
}

// handleGetCurrentQuestion handles the get_current_question tool request by
// returning the head of the review queue, or a completion message once
// everything is mastered.
func handleGetCurrentQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Session not available"), nil
	}

	q, ok := s.Current()
	if !ok {
		return jsonResult(CompleteResponse{
			Done:    true,
			Message: "All questions mastered. Great work!",
			Stats:   s.Progress(),
		})
	}
	return jsonResult(QuestionResponse{Question: q, Stats: s.Progress()})
}

// handleCheckAnswer handles the check_answer tool request by scoring the
// provided answer text against the current question. The answer may be
// empty; it then simply scores zero coverage and fails the length gate.
func handleCheckAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Session not available"), nil
	}

	answer, _ := request.Params.Arguments["answer"].(string)

	res, err := s.Check(answer)
	if err != nil {
		if errors.Is(err, session.ErrComplete) {
			return jsonResult(CompleteResponse{
				Done:    true,
				Message: "All questions mastered. Nothing left to check.",
				Stats:   s.Progress(),
			})
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error checking answer: %v"}`, err)), nil
	}

	return jsonResult(CheckResponse{
		Passed:       res.Score.Passed,
		Feedback:     formatFeedback(res),
		RubricDetail: formatRubricDetail(res.Rubric, res.Score.Groups),
		Solution:     formatSolution(res.Example),
		Result:       res,
	})
}

// handleNextQuestion handles the next_question tool request. The queue
// already advanced during check_answer; this returns the new head so the
// client can flow from feedback to the next prompt.
func handleNextQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handleGetCurrentQuestion(ctx, request)
}

// handleResetSession handles the reset_session tool request. Scope "today"
// reshuffles today's pack; scope "all" clears all persisted state for the
// loaded decks.
func handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Session not available"), nil
	}

	scopeArg, _ := request.Params.Arguments["scope"].(string)
	var scope session.ResetScope
	switch scopeArg {
	case "", "today":
		scope = session.ResetToday
	case "all":
		scope = session.ResetAll
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Invalid scope %q: must be \"today\" or \"all\"", scopeArg)), nil
	}

	if err := s.Reset(scope); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error resetting session: %v"}`, err)), nil
	}
	return jsonResult(ResetResponse{
		Success: true,
		Message: fmt.Sprintf("Session reset (%s) completed", scopeName(scope)),
		Stats:   s.Progress(),
	})
}

// handleSessionStats handles the session_stats tool request.
func handleSessionStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Session not available"), nil
	}
	return jsonResult(StatsResponse{SessionID: s.ID(), Stats: s.Progress()})
}

func scopeName(scope session.ResetScope) string {
	if scope == session.ResetAll {
		return "all"
	}
	return "today"
}

// formatFeedback renders the left-hand feedback block: pass/fail status,
// effective score against the pass threshold, word count against the
// minimum, groups hit, and points earned.
func formatFeedback(res session.CheckResult) string {
	sc := res.Score
	status := "FAILED"
	if sc.Passed {
		status = "PASSED"
	}

	lines := []string{
		status,
		fmt.Sprintf("Score: %.1f%% (coverage %.1f%%)", sc.Effective*100, sc.Coverage*100),
		fmt.Sprintf("Words: %d", sc.WordCount),
		fmt.Sprintf("Rubric: %d/%d groups hit", sc.HitCount, sc.Total),
		fmt.Sprintf("Points: %d", sc.Points),
	}
	if !sc.LengthOK {
		lines = append(lines, "Answer is under the minimum length")
	}
	return strings.Join(lines, "\n")
}

// formatRubricDetail renders one line per rubric group, labelled by its
// first phrase, with the matched phrase when the group was hit.
func formatRubricDetail(rubric [][]string, groups []textmatch.GroupMatch) []string {
	lines := make([]string, 0, len(rubric))
	for i, group := range rubric {
		label := fmt.Sprintf("group %d", i+1)
		if len(group) > 0 && group[0] != "" {
			label = group[0]
		}
		if i < len(groups) && groups[i].Hit {
			lines = append(lines, fmt.Sprintf("✅ %s (matched: %q)", label, groups[i].Phrase))
		} else {
			lines = append(lines, fmt.Sprintf("❌ %s", label))
		}
	}
	return lines
}

func formatSolution(example string) string {
	if example == "" {
		return "(no example answer provided)"
	}
	return example
}
