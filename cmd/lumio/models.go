// Package main provides the Lumio quiz engine MCP service.
package main

import (
	"github.com/lumio-app/lumio/internal/session"
)

// DeckInfo describes one candidate deck file for the picker.
type DeckInfo struct {
	File      string `json:"file"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
	DueDate   string `json:"due_date,omitempty"`
}

// ListDecksResponse is the response structure for list_decks.
type ListDecksResponse struct {
	Decks []DeckInfo `json:"decks"`
}

// QuestionResponse is the response structure for get_current_question and
// next_question.
type QuestionResponse struct {
	Question session.Question `json:"question"`
	Stats    session.Stats    `json:"stats"`
}

// CompleteResponse is returned instead of a question once every question is
// mastered.
type CompleteResponse struct {
	Done    bool          `json:"done"`
	Message string        `json:"message"`
	Stats   session.Stats `json:"stats"`
}

// CheckResponse is the response structure for check_answer.
type CheckResponse struct {
	Passed       bool                `json:"passed"`
	Feedback     string              `json:"feedback"`
	RubricDetail []string            `json:"rubric_detail"`
	Solution     string              `json:"solution"`
	Result       session.CheckResult `json:"result"`
}

// ResetResponse is the response structure for reset_session.
type ResetResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Stats   session.Stats `json:"stats"`
}

// StatsResponse is the response structure for session_stats.
type StatsResponse struct {
	SessionID string        `json:"session_id"`
	Stats     session.Stats `json:"stats"`
}
