package feishu

import (
	"encoding/json"
	"strings"
)

// ExtractText returns the plain text of a message body.
// Mention placeholders (@_user_1) are replaced with real names.
// Unsupported message types yield an empty string.
func ExtractText(msgType, content string, mentionMap map[string]string) string {
	switch msgType {
	case "text":
		var parsed struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return ""
		}
		return replaceMentions(parsed.Text, mentionMap)
	case "post":
		return replaceMentions(parsePost(content, mentionMap), mentionMap)
	default:
		return ""
	}
}

// parsePost flattens a rich text message into lines
func parsePost(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var b strings.Builder
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				b.WriteString(elem.Text)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					b.WriteString("@" + name)
				} else if elem.UserID != "" {
					b.WriteString("@" + elem.UserID)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n")
}

func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}
