package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"orchd/internal/schedule"
)

// reservedTool is the tool identifier handled without tokenizing the path:
// the path is the runner executable and the job name is the published
// process to run.
const reservedTool = "robot"

// Builder translates a job into an argv slice.
type Builder struct {
	python string
}

// NewBuilder returns a Builder using the given python interpreter for
// .py/.pyw targets. Empty means "python" from PATH.
func NewBuilder(pythonBin string) *Builder {
	if strings.TrimSpace(pythonBin) == "" {
		pythonBin = "python"
	}
	return &Builder{python: pythonBin}
}

// Build assembles the command line for a job.
func (b *Builder) Build(job schedule.Job) ([]string, error) {
	tool := strings.TrimSpace(job.Tool)
	path := strings.TrimSpace(job.Path)
	name := strings.TrimSpace(job.Name)

	if tool == "" || path == "" {
		return nil, ErrIncompleteItem
	}

	if strings.EqualFold(tool, reservedTool) {
		return []string{path, "execute", "--process-name", name}, nil
	}

	tokens := splitCommand(path)
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}

	entry := tokens[0]
	ext := strings.ToLower(filepath.Ext(entry))

	switch ext {
	case ".py", ".pyw":
		return append([]string{b.python}, tokens...), nil
	case ".bat", ".cmd":
		return append([]string{"cmd.exe", "/c"}, tokens...), nil
	case ".ps1":
		argv := []string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", entry}
		return append(argv, tokens[1:]...), nil
	case ".lnk":
		return []string{
			"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command",
			fmt.Sprintf("Start-Process -FilePath %s -ArgumentList %s -Wait", psQuote(entry), psArgList(tokens[1:])),
		}, nil
	}

	if fi, err := os.Stat(entry); err == nil && fi.Mode().IsRegular() && ext != ".exe" && ext != ".com" {
		return nil, &UnexecutableError{Path: entry, Ext: ext}
	}
	return tokens, nil
}

// splitCommand breaks a raw path/command into tokens. An existing path is
// taken whole, spaces and all. Otherwise the text is tokenized and, when it
// did not start quoted, the leading tokens are re-joined greedily to
// recover an unquoted path containing spaces: longest prefix naming a file
// wins, then longest prefix naming anything.
func splitCommand(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := os.Stat(raw); err == nil {
		return []string{raw}
	}

	tokens := tokenize(raw)
	if len(tokens) > 1 && raw[0] != '"' && raw[0] != '\'' {
		for i := len(tokens); i > 0; i-- {
			candidate := strings.Join(tokens[:i], " ")
			if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
				return append([]string{candidate}, tokens[i:]...)
			}
		}
		for i := len(tokens); i > 0; i-- {
			candidate := strings.Join(tokens[:i], " ")
			if _, err := os.Stat(candidate); err == nil {
				return append([]string{candidate}, tokens[i:]...)
			}
		}
	}
	return tokens
}

// tokenize splits on whitespace, honoring single and double quotes. Quotes
// are stripped from the resulting tokens. Unbalanced quoting falls back to
// the whole string as a single token.
func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range raw {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return []string{raw}
	}
	flush()
	return tokens
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func psArgList(args []string) string {
	if len(args) == 0 {
		return "@()"
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = psQuote(a)
	}
	return "@(" + strings.Join(quoted, ",") + ")"
}
