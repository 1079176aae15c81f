package execute

import (
	"context"
	"errors"
	"strings"

	"github.com/codenest/codenest/pkg/models"
)

// CommandKind classifies a line typed into the terminal.
type CommandKind int

const (
	CommandEmpty CommandKind = iota
	CommandClear
	CommandRun
	CommandUnsupported
)

// Command is a parsed terminal line.
type Command struct {
	Kind     CommandKind
	Raw      string
	Language string
	Code     string
}

// ParseCommand recognises "clear" and "<alias> <code>". Everything else
// is unsupported; the sandbox only runs code.
func ParseCommand(line string) Command {
	cmd := Command{Raw: line}
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		cmd.Kind = CommandEmpty
		return cmd
	case trimmed == "clear":
		cmd.Kind = CommandClear
		return cmd
	}

	head, code, found := strings.Cut(trimmed, " ")
	if lang, err := Canonical(head); err == nil && found && strings.TrimSpace(code) != "" {
		cmd.Kind = CommandRun
		cmd.Language = lang
		cmd.Code = code
		return cmd
	}
	cmd.Kind = CommandUnsupported
	return cmd
}

// Transcript is the terminal side of a workspace.
type Transcript interface {
	AddTerminalLine(kind models.LineType, content string) (models.TerminalLine, error)
	ClearTerminal()
}

// UnsupportedCommandMessage is written for lines that are not code runs.
const UnsupportedCommandMessage = "command not supported"

// RunCommand handles one terminal line against a transcript: the line is
// echoed as a command, then cleared, executed or rejected. It returns the
// lines it appended and whether the transcript was cleared.
func (c *Client) RunCommand(ctx context.Context, t Transcript, line string) ([]models.TerminalLine, bool, error) {
	cmd := ParseCommand(line)
	switch cmd.Kind {
	case CommandEmpty:
		return nil, false, nil
	case CommandClear:
		t.ClearTerminal()
		return nil, true, nil
	}

	var added []models.TerminalLine
	appendLine := func(kind models.LineType, content string) error {
		l, err := t.AddTerminalLine(kind, content)
		if err != nil {
			return err
		}
		added = append(added, l)
		return nil
	}

	if err := appendLine(models.LineCommand, cmd.Raw); err != nil {
		return nil, false, err
	}
	if cmd.Kind == CommandUnsupported {
		err := appendLine(models.LineError, UnsupportedCommandMessage)
		return added, false, err
	}

	kind, text := ResultLine(c.Run(ctx, Request{Code: cmd.Code, Language: cmd.Language}))
	if err := appendLine(kind, text); err != nil {
		return added, false, err
	}
	return added, false, nil
}

// ResultLine renders the outcome of Run as a single terminal line.
func ResultLine(res Result, err error) (models.LineType, string) {
	var unsupported *UnsupportedLanguageError
	switch {
	case errors.As(err, &unsupported):
		return models.LineError, UnsupportedCommandMessage
	case errors.Is(err, ErrMissingInput):
		return models.LineError, "Code and language are required"
	case err != nil:
		return models.LineError, "Execution failed: " + err.Error()
	case res.Success:
		return models.LineOutput, res.Output
	default:
		return models.LineError, res.Error
	}
}
