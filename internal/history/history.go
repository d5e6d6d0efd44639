// Package history owns the encoded turn format and the context-assembly
// rules: how a stored history string becomes the message list sent to the
// model, and how the string grows after a completed exchange.
package history

import (
	"log"
	"strings"

	"persona-bot/internal/llm"
)

// Turns are joined by turnSep, each turn encoded as role + roleSep + content
// with a trailing turnSep after the last turn. Content is stored unescaped,
// so content containing either delimiter will not round-trip; the encoder
// never produces such strings itself.
const (
	turnSep = "|||"
	roleSep = "::"
)

// Decode parses an encoded history string into ordered turns. Empty
// fragments (from the trailing delimiter) are dropped; a fragment without a
// role separator is malformed and is skipped with a log line rather than
// failing the whole conversation.
func Decode(s string) []llm.Message {
	var out []llm.Message
	for _, frag := range strings.Split(s, turnSep) {
		if frag == "" {
			continue
		}
		role, content, ok := strings.Cut(frag, roleSep)
		if !ok {
			log.Printf("skipping malformed history fragment: %q", frag)
			continue
		}
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}

// Encode serializes turns into the stored form. Decode(Encode(turns)) ==
// turns for any content free of the delimiters.
func Encode(turns []llm.Message) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(roleSep)
		b.WriteString(t.Content)
		b.WriteString(turnSep)
	}
	return b.String()
}

// Assemble builds the message list for one completion call: the system entry
// if a role prompt is set, the decoded history in stored order, then the
// inbound text as the final user entry.
func Assemble(rolePrompt, encodedHistory, inbound string) []llm.Message {
	var msgs []llm.Message
	if rolePrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: rolePrompt})
	}
	msgs = append(msgs, Decode(encodedHistory)...)
	msgs = append(msgs, llm.Message{Role: "user", Content: inbound})
	return msgs
}

// Outcome is the explicit result of one completion call. Persistence
// decisions key off its error, never off the reply content.
type Outcome struct {
	reply string
	err   error
}

func Success(reply string) Outcome { return Outcome{reply: reply} }

func Failure(err error) Outcome { return Outcome{err: err} }

func (o Outcome) Failed() bool { return o.err != nil }

// Apply returns the history to persist after a completion call. A successful
// exchange appends the user/assistant pair together; a failed one returns
// the history unchanged, so a failed exchange never enters future context.
func Apply(encodedHistory, inbound string, o Outcome) string {
	if o.err != nil {
		return encodedHistory
	}
	return encodedHistory + Encode([]llm.Message{
		{Role: "user", Content: inbound},
		{Role: "assistant", Content: o.reply},
	})
}
