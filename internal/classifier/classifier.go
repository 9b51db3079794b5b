package classifier

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemMessage instructs the model to act as a strict binary spam
// classifier for the group.
const SystemMessage = "You are a strict binary classifier for messages in a community group chat.\n" +
	"Task: Determine if a message is spam relevant to the group. Output exactly one word: Yes or No. No punctuation, no explanations.\n\n" +
	"Label as Yes (spam) when the message is about buying/selling/trading tickets or passes for events unrelated to the group, especially if it includes phone numbers, 'text/DM me', prices, or payment apps. Also treat ticket giveaways/resales and bulk season tickets as spam.\n\n" +
	"Label as No (not spam) for: normal conversation, announcements, practice or event info, officer communications, and posts clearly tied to official group activities."

const (
	trainStart = "Here are labeled examples. Treat assistant labels 'Yes' as spam and 'No' as not spam."
	trainEnd   = "End of examples. Classify the next message. Respond with only Yes or No."
)

// Example is one labeled training exchange included in the prompt.
type Example struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// LoadExamples reads labeled few-shot examples from a YAML file. A missing
// path yields no examples rather than an error.
func LoadExamples(path string) ([]Example, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read training file: %w", err)
	}

	var out struct {
		Messages []Example `yaml:"messages"`
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse training file: %w", err)
	}
	return out.Messages, nil
}

// Classifier decides whether a message is spam by asking the model for a
// binary label.
type Classifier struct {
	client   *Client
	examples []Example
}

func New(client *Client, examples []Example) *Classifier {
	return &Classifier{client: client, examples: examples}
}

// Client exposes the underlying inference client for catalog management.
func (c *Classifier) Client() *Client {
	return c.client
}

// IsSpam classifies text. Empty and whitespace-only messages are never spam
// and skip the model call entirely.
func (c *Classifier) IsSpam(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	messages := c.buildMessages(text, SystemMessage, nil)
	resp, err := c.client.Chat(ctx, messages, false)
	if err != nil {
		return false, fmt.Errorf("classify message: %w", err)
	}
	return ParseLabel(resp.Message.Content), nil
}

// Prompt sends an arbitrary invocation through the same prompt scaffolding,
// used by the direct /ai endpoint. A custom system message replaces the
// classifier's own, data entries become extra context messages ahead of the
// text, and think enables the model's reasoning mode.
func (c *Classifier) Prompt(ctx context.Context, text, systemMessage string, data []string, think bool) (*ChatResponse, error) {
	if systemMessage == "" {
		systemMessage = SystemMessage
	}
	return c.client.Chat(ctx, c.buildMessages(text, systemMessage, data), think)
}

func (c *Classifier) buildMessages(text, systemMessage string, data []string) []Message {
	messages := make([]Message, 0, len(c.examples)+len(data)+4)
	messages = append(messages, Message{Role: "system", Content: systemMessage})
	if len(c.examples) > 0 {
		messages = append(messages, Message{Role: "user", Content: trainStart})
		for _, ex := range c.examples {
			messages = append(messages, Message{Role: ex.Role, Content: ex.Content})
		}
		messages = append(messages, Message{Role: "user", Content: trainEnd})
	}
	for _, d := range data {
		if strings.TrimSpace(d) == "" {
			continue
		}
		messages = append(messages, Message{Role: "user", Content: d})
	}
	messages = append(messages, Message{Role: "user", Content: text})
	return messages
}

// ParseLabel interprets the model output as a binary label. An answer
// starting with yes is spam, starting with no is clean; otherwise a
// contains-yes-without-no fallback covers models that add extra text.
func ParseLabel(content string) bool {
	answer := strings.ToLower(strings.TrimSpace(content))
	if answer == "" {
		return false
	}
	if strings.HasPrefix(answer, "yes") {
		return true
	}
	if strings.HasPrefix(answer, "no") {
		return false
	}
	return strings.Contains(answer, "yes") && !strings.Contains(answer, "no")
}
