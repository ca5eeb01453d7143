package chat

import "strings"

type CommandKind int

const (
	// KindNone marks a line without the command sigil: plain chat text.
	KindNone CommandKind = iota
	KindRegister
	KindLogin
	KindHistory
	KindUsers
	KindHelp
	KindUnknown
)

// Command is one parsed command line. Args are the whitespace tokens
// after the command word; validating their count is the caller's job.
type Command struct {
	Kind CommandKind
	Args []string
	Raw  string
}

// ParseCommand classifies a slash-prefixed line. Lines not starting
// with '/' are chat text, not commands.
func ParseCommand(line string) Command {
	cmd := Command{Kind: KindNone, Raw: line}
	if !strings.HasPrefix(line, "/") {
		return cmd
	}
	tokens := strings.Fields(line)
	cmd.Kind = resolveKind(strings.TrimPrefix(tokens[0], "/"))
	cmd.Args = tokens[1:]
	return cmd
}

// ParseRequest parses command text carried inside a command frame,
// where the sigil is optional: the framed protocol sends bare words,
// the line-oriented client sends slash-prefixed ones.
func ParseRequest(text string) Command {
	if strings.HasPrefix(text, "/") {
		return ParseCommand(text)
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Command{Kind: KindUnknown, Raw: text}
	}
	return Command{Kind: resolveKind(tokens[0]), Args: tokens[1:], Raw: text}
}

func resolveKind(word string) CommandKind {
	switch word {
	case "register", "reg":
		return KindRegister
	case "login":
		return KindLogin
	case "history", "hist":
		return KindHistory
	case "users", "u":
		return KindUsers
	case "help":
		return KindHelp
	}
	return KindUnknown
}
