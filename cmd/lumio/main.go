package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/progress"
	"github.com/lumio-app/lumio/internal/session"
)

const lumioServerInfo = `
This is Lumio, a self-study quiz engine for free-text answers. It loads
decks of questions, scores typed answers against a phrase rubric, and
schedules which questions are due today based on each deck's deadline.
Follow this review workflow:

1. Call get_current_question and present ONLY the prompt to the learner.
2. Collect the learner's typed answer in full sentences; the engine checks
   for key phrases and a minimum word count, so a one-word reply will fail.
3. Call check_answer with the exact answer text. Do not paraphrase it,
   fix spelling, or add content: the score must reflect the learner's own
   words.
4. Show the feedback and rubric detail, then the example solution.
5. Call next_question and continue. Failed questions return automatically
   later in the session until they pass.
6. reset_session with scope "today" reshuffles today's pack; scope "all"
   wipes all recorded progress for the loaded decks. Confirm with the
   learner before resetting with scope "all".
`

func main() {
	decksDir := flag.String("decks", "./decks", "Directory containing deck JSON files")
	progressFile := flag.String("progress", "./progress.json", "Path to the progress data file")
	only := flag.String("only", "", "Comma-separated deck filenames to load (default: every deck in the decks directory)")
	flag.Parse()

	decks, err := loadDecks(*decksDir, *only)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading decks: %v\n", err)
		os.Exit(1)
	}

	store := progress.NewFileStore(*progressFile)
	sess, err := session.New(decks, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"Lumio",
		"1.0.0",
		server.WithInstructions(lumioServerInfo),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	// Create context with the session for tool handlers
	ctx := context.WithValue(context.Background(), "session", sess)

	listDecksTool := mcp.NewTool("list_decks",
		mcp.WithDescription("List the decks loaded into this session with their display names, question counts, and due dates."),
	)

	getCurrentQuestionTool := mcp.NewTool("get_current_question",
		mcp.WithDescription(
			"Get the question at the head of today's review queue. "+
				"Present only the prompt; never reveal rubric phrases or the example solution before check_answer.",
		),
	)

	checkAnswerTool := mcp.NewTool("check_answer",
		mcp.WithDescription(
			"Score the learner's answer against the current question's rubric. "+
				"Pass the answer text exactly as the learner wrote it. "+
				"Returns pass/fail, per-group rubric detail, and the example solution to show afterwards.",
		),
		mcp.WithString("answer",
			mcp.Description("The learner's answer text; may be empty"),
		),
	)

	nextQuestionTool := mcp.NewTool("next_question",
		mcp.WithDescription("Advance to the next question after feedback has been shown."),
	)

	resetSessionTool := mcp.NewTool("reset_session",
		mcp.WithDescription(
			"Reset review state. Scope \"today\" reshuffles today's pack; "+
				"scope \"all\" clears every recorded attempt for the loaded decks. "+
				"Ask the learner for confirmation before scope \"all\".",
		),
		mcp.WithString("scope",
			mcp.Description("Reset scope: \"today\" (default) or \"all\""),
		),
	)

	sessionStatsTool := mcp.NewTool("session_stats",
		mcp.WithDescription("Get today's progress counters: mastered vs. today's pack, plus totals across all loaded decks."),
	)

	s.AddTool(listDecksTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListDecks(ctx, request)
	})
	s.AddTool(getCurrentQuestionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetCurrentQuestion(ctx, request)
	})
	s.AddTool(checkAnswerTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCheckAnswer(ctx, request)
	})
	s.AddTool(nextQuestionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleNextQuestion(ctx, request)
	})
	s.AddTool(resetSessionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleResetSession(ctx, request)
	})
	s.AddTool(sessionStatsTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSessionStats(ctx, request)
	})

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Error serving MCP server: %v", err)
	}
}

// loadDecks loads the selected deck set all-or-nothing: any deck that fails
// to load aborts startup rather than silently dropping the bad deck.
func loadDecks(dir, only string) ([]deck.Deck, error) {
	paths, err := deck.List(dir)
	if err != nil {
		return nil, err
	}

	if only != "" {
		want := make(map[string]bool)
		for _, name := range strings.Split(only, ",") {
			if name = strings.TrimSpace(name); name != "" {
				want[name] = true
			}
		}
		var selected []string
		for _, p := range paths {
			if want[filepath.Base(p)] {
				selected = append(selected, p)
				delete(want, filepath.Base(p))
			}
		}
		if len(want) > 0 {
			missing := make([]string, 0, len(want))
			for name := range want {
				missing = append(missing, name)
			}
			return nil, fmt.Errorf("selected decks not found in %s: %s", dir, strings.Join(missing, ", "))
		}
		paths = selected
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no decks found in %s", dir)
	}

	decks := make([]deck.Deck, 0, len(paths))
	for _, p := range paths {
		d, err := deck.LoadDeck(p, dir)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, nil
}
