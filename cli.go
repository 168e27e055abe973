package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/compiler"
	"github.com/strager/chocowat/logging"
)

const usage = `chocowat - compiles a typed subset of Python to WebAssembly text

Usage:
    chocowat <command> [arguments]

Commands:
    run <file>      Compile and execute a .py file
    build <file>    Compile a .py file to a .wat module
    eval <code>     Evaluate inline code
    check <file>    Parse and type-check a .py file
    repl            Start an interactive session
    help            Show this help message

Examples:
    chocowat run examples/fib.py
    chocowat build -o fib.wat fib.py
    chocowat eval 'print(6 * 7)'
    chocowat check myfile.py

Every command accepts -config <path> (default ./chocowat.toml).
Use "chocowat <command> -h" for more information about a command.
`

// cli holds the streams a command talks to.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) showUsage() {
	fmt.Fprint(c.stderr, usage)
}

// main dispatches to a command and returns the process exit status.
func (c *cli) main(args []string) int {
	if len(args) < 1 {
		c.showUsage()
		return 1
	}

	command, args := args[0], args[1:]
	switch command {
	case "run":
		return c.runCommand(args)
	case "build":
		return c.buildCommand(args)
	case "eval":
		return c.evalCommand(args)
	case "check":
		return c.checkCommand(args)
	case "repl":
		return c.replCommand(args)
	case "help", "-h", "--help":
		c.showUsage()
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", command)
		c.showUsage()
		return 1
	}
}

// commandEnv is what every command needs after its flags are parsed.
type commandEnv struct {
	cfg  *Config
	log  *logging.Logger
	opts compiler.Options
}

// newFlagSet builds a flag set with the flags shared by every command.
func (c *cli) newFlagSet(name, args, summary string) (*flag.FlagSet, *string, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	configPath := fs.String("config", "", "Config file (default ./"+ConfigFileName+" when present)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: chocowat %s %s\n", name, args)
		fmt.Fprintf(c.stderr, "%s\n\n", summary)
		fmt.Fprintf(c.stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs, configPath, verbose
}

// parseArgs parses args and checks that exactly want positional arguments
// remain.
func (c *cli) parseArgs(fs *flag.FlagSet, args []string, want int, what string) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() != want {
		if want == 1 {
			fmt.Fprintf(c.stderr, "Error: expected exactly one %s argument\n", what)
		} else {
			fmt.Fprintf(c.stderr, "Error: unexpected %s arguments\n", what)
		}
		fs.Usage()
		return false
	}
	return true
}

func (c *cli) loadEnv(configPath string, verbose bool) (*commandEnv, bool) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		logging.New(c.stderr, logging.LevelError).Error("Config Error", err)
		return nil, false
	}
	return &commandEnv{
		cfg:  cfg,
		log:  logging.New(c.stderr, cfg.LogLevel(verbose)),
		opts: compiler.Options{Indent: cfg.Output.Indent},
	}, true
}

func (c *cli) readSource(env *commandEnv, filename string) (string, bool) {
	source, err := os.ReadFile(filename)
	if err != nil {
		env.log.Error("Error", fmt.Errorf("reading %s: %w", filename, err))
		return "", false
	}
	return string(source), true
}

func (c *cli) runCommand(args []string) int {
	fs, configPath, verbose := c.newFlagSet("run", "[-v] <file>", "Compile and execute a .py file")
	if !c.parseArgs(fs, args, 1, "file") {
		return 1
	}
	env, ok := c.loadEnv(*configPath, *verbose)
	if !ok {
		return 1
	}

	filename := fs.Arg(0)
	env.log.Infof("Compiling", "%s", filename)
	source, ok := c.readSource(env, filename)
	if !ok {
		return 1
	}
	if _, ok := c.execute(env, filename, source, false); !ok {
		return 1
	}
	return 0
}

func (c *cli) evalCommand(args []string) int {
	fs, configPath, verbose := c.newFlagSet("eval", "[-v] <code>", "Evaluate inline code")
	if !c.parseArgs(fs, args, 1, "code") {
		return 1
	}
	env, ok := c.loadEnv(*configPath, *verbose)
	if !ok {
		return 1
	}

	code := fs.Arg(0)
	env.log.Infof("Evaluating", "%s", code)
	if _, ok := c.execute(env, "<eval>", code, true); !ok {
		return 1
	}
	return 0
}

// execute compiles and runs source, reporting failures through env.log.
// With echo set the program's final value is shown the way the REPL does.
func (c *cli) execute(env *commandEnv, filename, source string, echo bool) (*compiler.Execution, bool) {
	out, err := compiler.Compile(source, env.opts)
	if err != nil {
		env.log.CompileError(filename, source, err)
		return nil, false
	}
	env.log.Infof("Compiled", "%d bytes of WAT", len(out.WAT))
	if env.cfg.Run.ShowWAT {
		fmt.Fprint(c.stdout, out.WAT)
	}

	exec, err := compiler.Execute(out, c.stdout)
	if err != nil {
		env.log.Error("Runtime Error", err)
		return nil, false
	}
	if echo && out.EchoesResult() {
		fmt.Fprintln(c.stdout, compiler.FormatValue(exec.Result, exec.Value))
	}
	return exec, true
}

func (c *cli) buildCommand(args []string) int {
	fs, configPath, verbose := c.newFlagSet("build", "[-o output] [-v] <file>", "Compile a .py file to a .wat module")
	output := fs.String("o", "", "Output file path (default: <filename>.wat)")
	if !c.parseArgs(fs, args, 1, "file") {
		return 1
	}
	env, ok := c.loadEnv(*configPath, *verbose)
	if !ok {
		return 1
	}

	filename := fs.Arg(0)
	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, ".py") + ".wat"
	}
	env.log.Infof("Compiling", "%s to %s", filename, outputFile)

	source, ok := c.readSource(env, filename)
	if !ok {
		return 1
	}
	out, err := compiler.Compile(source, env.opts)
	if err != nil {
		env.log.CompileError(filename, source, err)
		return 1
	}
	if err := os.WriteFile(outputFile, []byte(out.WAT), 0o644); err != nil {
		env.log.Error("Error", fmt.Errorf("writing %s: %w", outputFile, err))
		return 1
	}

	fmt.Fprintf(c.stdout, "Generated %s (%d bytes)\n", outputFile, len(out.WAT))
	return 0
}

func (c *cli) checkCommand(args []string) int {
	fs, configPath, verbose := c.newFlagSet("check", "[-v] <file>", "Parse and type-check a .py file")
	if !c.parseArgs(fs, args, 1, "file") {
		return 1
	}
	env, ok := c.loadEnv(*configPath, *verbose)
	if !ok {
		return 1
	}

	filename := fs.Arg(0)
	env.log.Infof("Checking", "%s", filename)
	source, ok := c.readSource(env, filename)
	if !ok {
		return 1
	}
	stmts, err := compiler.Check(source)
	if err != nil {
		env.log.CompileError(filename, source, err)
		return 1
	}

	fmt.Fprintf(c.stdout, "%s: no errors found\n", filename)
	env.log.Info("AST", ast.ToSExpr(stmts))
	return 0
}
