package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PostSystemPrompt frames the model as a blog writer.
const PostSystemPrompt = "You write concise, practical blog posts about planning " +
	"and productivity. Reply with JSON only."

// GeneratedPost is a model-written post.
type GeneratedPost struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// BuildPostPrompt asks for a post about topic.
func BuildPostPrompt(topic string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a blog post about: %s\n\n", strings.TrimSpace(topic))
	sb.WriteString(`Return a JSON object {"title": string, "body": string}. `)
	sb.WriteString("The body is Markdown, 400 to 800 words.")
	return sb.String()
}

// ParsePost decodes a GeneratedPost and rejects empty fields.
func ParsePost(resp string) (GeneratedPost, error) {
	var p GeneratedPost
	if err := json.Unmarshal([]byte(stripFence(resp)), &p); err != nil {
		return GeneratedPost{}, fmt.Errorf("parse post: %w", err)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Body = strings.TrimSpace(p.Body)
	if p.Title == "" || p.Body == "" {
		return GeneratedPost{}, fmt.Errorf("parse post: missing title or body")
	}
	return p, nil
}

// BuildTopicsPrompt asks for n post topics within theme.
func BuildTopicsPrompt(theme string, n int) string {
	return fmt.Sprintf("Suggest %d distinct blog post topics for the theme %q. "+
		"Return a JSON array of strings, one short topic per entry.", n, strings.TrimSpace(theme))
}

// ParseTopics decodes a list of topics, trimming blanks and duplicates and
// keeping at most n.
func ParseTopics(resp string, n int) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(stripFence(resp)), &raw); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}
