package refine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/local/ravianalyzer/internal/ravi"
)

const systemPrompt = "You are an expert in Islamic hadith sciences and narrator criticism (ilm al-rijal). Answer with a single JSON object and nothing else."

const promptTemplate = `Analyze the following page from the book %q (page %d).
Look for the word "Ravi" (narrator) and determine whether the narrator discussed is described as
Thiqah (trustworthy, reliable) or Zaeef (weak, unreliable).

Respond with JSON only, in exactly this shape:
{"found": true or false, "status": "Thiqah" | "Zaeef" | "Unknown", "context": "the relevant sentence, at most 200 characters"}

Page text:
"""
%s
"""`

// BuildPrompt renders the fixed judgment prompt for one page.
func BuildPrompt(req PageRequest) string {
	return fmt.Sprintf(promptTemplate, req.Book, req.Page, req.Text)
}

var (
	// ErrNoJSON is returned when a response carries no JSON object.
	ErrNoJSON = errors.New("no JSON object found in response")

	codeBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

type rawJudgment struct {
	Found   bool   `json:"found"`
	Status  string `json:"status"`
	Context string `json:"context"`
}

// ParseJudgment extracts the first JSON object from a model response.
func ParseJudgment(content string) (Judgment, error) {
	jsonStr := extractObject(content)
	if jsonStr == "" {
		return Judgment{}, ErrNoJSON
	}
	var raw rawJudgment
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Judgment{}, fmt.Errorf("parse judgment: %w", err)
	}
	return Judgment{
		Found:   raw.Found,
		Status:  ravi.ParseStatus(raw.Status),
		Context: ravi.Truncate(strings.TrimSpace(raw.Context), ravi.MaxContextLen),
	}, nil
}

func extractObject(content string) string {
	if m := codeBlock.FindStringSubmatch(content); len(m) > 1 {
		if s := strings.TrimSpace(m[1]); strings.HasPrefix(s, "{") {
			content = s
		}
	}
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
