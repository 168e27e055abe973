package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/compiler"
	"github.com/strager/chocowat/diag"
	"github.com/strager/chocowat/parser"
)

const replFilename = "<repl>"

// session is the program built up by a REPL. Every entry recompiles and
// reruns the whole program; only output past what was already shown is
// reported. Definitions are kept ahead of statements so that entries may
// declare new names after statements have run.
type session struct {
	opts compiler.Options

	defs    string
	stmts   string
	printed int // bytes of program output already shown
}

// eval adds entry to the session and runs it. It returns the output the
// entry produced and the full program source that was compiled, for error
// display. A failing entry leaves the session unchanged.
func (s *session) eval(entry string) (output, source string, err error) {
	if strings.TrimSpace(entry) == "" {
		return "", "", nil
	}
	if !strings.HasSuffix(entry, "\n") {
		entry += "\n"
	}

	parsed, err := parser.Parse(entry)
	if err != nil {
		return "", entry, err
	}
	definitions := allDefinitions(parsed)

	defs, stmts := s.defs, s.stmts
	if definitions {
		defs += entry
	} else {
		stmts += entry
	}
	source = defs + stmts

	out, err := compiler.Compile(source, s.opts)
	if err != nil {
		return "", source, err
	}
	var buf bytes.Buffer
	exec, err := compiler.Execute(out, &buf)
	if buf.Len() > s.printed {
		output = buf.String()[s.printed:]
	}
	if err != nil {
		return output, source, err
	}
	if !definitions && out.EchoesResult() {
		output += compiler.FormatValue(exec.Result, exec.Value) + "\n"
	}

	s.defs, s.stmts, s.printed = defs, stmts, buf.Len()
	return output, source, nil
}

func allDefinitions(stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		if !ast.IsDefinition(stmt) {
			return false
		}
	}
	return len(stmts) > 0
}

// entryComplete reports whether buffered holds a whole entry. An entry
// that opens a block runs until a blank line, as in Python's REPL; a blank
// line always ends the entry.
func entryComplete(buffered, lastLine string) bool {
	if strings.TrimSpace(buffered) == "" || strings.TrimSpace(lastLine) == "" {
		return true
	}
	if _, err := parser.Parse(buffered); diag.IsIncomplete(err) {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimLeft(buffered, "\n"), "\n")
	return !strings.HasSuffix(strings.TrimSpace(first), ":")
}

func (c *cli) replCommand(args []string) int {
	fs, configPath, verbose := c.newFlagSet("repl", "[-v]", "Start an interactive session")
	if !c.parseArgs(fs, args, 0, "repl") {
		return 1
	}
	env, ok := c.loadEnv(*configPath, *verbose)
	if !ok {
		return 1
	}

	s := &session{opts: env.opts}
	if c.stdin == os.Stdin && isInteractive() {
		c.runInteractiveREPL(env, s)
	} else {
		c.runBufferedREPL(env, s, bufio.NewReader(c.stdin))
	}
	return 0
}

func (c *cli) evalEntry(env *commandEnv, s *session, entry string) {
	output, source, err := s.eval(entry)
	fmt.Fprint(c.stdout, output)
	if err == nil {
		return
	}
	if _, ok := diag.As(err); ok {
		env.log.CompileError(replFilename, source, err)
	} else {
		env.log.Error("Runtime Error", err)
	}
}

func (c *cli) runBufferedREPL(env *commandEnv, s *session, reader *bufio.Reader) {
	var buffer strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			env.log.Error("Error", fmt.Errorf("read error: %w", err))
			return
		}
		buffer.WriteString(line)
		eof := errors.Is(err, io.EOF)
		if !eof && !entryComplete(buffer.String(), line) {
			continue
		}
		c.evalEntry(env, s, buffer.String())
		buffer.Reset()
		if eof {
			return
		}
	}
}

func (c *cli) runInteractiveREPL(env *commandEnv, s *session) {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				state.WriteHistory(f)
				f.Close()
			}
		}()
	}

	var buffer strings.Builder

	for {
		prompt := ">>> "
		if buffer.Len() > 0 {
			prompt = "... "
		}
		input, err := state.Prompt(prompt)
		if err != nil {
			switch {
			case errors.Is(err, liner.ErrPromptAborted):
				fmt.Fprintln(c.stdout)
				buffer.Reset()
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(c.stdout)
				return
			default:
				env.log.Error("Error", fmt.Errorf("read error: %w", err))
				return
			}
		}
		buffer.WriteString(input)
		buffer.WriteString("\n")

		entry := buffer.String()
		if !entryComplete(entry, input) {
			continue
		}
		buffer.Reset()
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			state.AppendHistory(trimmed)
		}
		c.evalEntry(env, s, entry)
	}
}

func replHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".chocowat_history")
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
