package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a test
type InputType string

const (
	InputTypeProgram InputType = "py-program"
)

// AssertionType represents the type of assertion code fence in a test
type AssertionType string

const (
	// AssertionTypeAST holds a pattern for the lowered program, matched with
	// Match.
	AssertionTypeAST AssertionType = "ast"
	// AssertionTypeTypes lists the types of the top-level expression
	// statements, e.g. (int bool C).
	AssertionTypeTypes AssertionType = "types"
	// AssertionTypeExecute holds the expected output of running the program.
	AssertionTypeExecute AssertionType = "execute"
	// AssertionTypeCompileError holds the expected error message.
	AssertionTypeCompileError AssertionType = "compile-error"
	// AssertionTypeWAT holds lines that must appear, in order, in the
	// generated module.
	AssertionTypeWAT AssertionType = "wat"
)

// Assertion represents a single assertion in a test
type Assertion struct {
	Type       AssertionType
	Content    string // The raw content of the assertion code fence
	ParsedSexy *Node  // Set for ast and types assertions
	Line       int
}

// TestCase represents a complete test case extracted from Markdown
type TestCase struct {
	Name       string // The test name from the heading (after "Test: ")
	Input      string
	InputType  InputType
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and extracts every test case.
// A test starts at a heading "Test: name" and is followed by one input
// fence and at least one assertion fence.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)
	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var currentTestCase *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			if !strings.HasPrefix(headingText, "Test: ") {
				return ast.WalkContinue, nil
			}
			if currentTestCase != nil {
				if err := validateTestCase(currentTestCase); err != nil {
					return ast.WalkStop, err
				}
				testCases = append(testCases, *currentTestCase)
			}
			currentTestCase = &TestCase{Name: strings.TrimPrefix(headingText, "Test: ")}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := extractCodeBlockContent(n, source)
			lineNum := getLineNumber(n, source)

			if currentTestCase == nil {
				switch {
				case isInputFence(language) || isAssertionFence(language):
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
				case language != "":
					return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", lineNum, language)
				}
				// Allow code blocks with no language specified
				return ast.WalkContinue, nil
			}

			switch {
			case isInputFence(language):
				if currentTestCase.InputType != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, currentTestCase.Name)
				}
				currentTestCase.Input = strings.TrimRight(content, "\n")
				currentTestCase.InputType = InputType(language)
			case isAssertionFence(language):
				assertion := Assertion{
					Type:    AssertionType(language),
					Content: strings.TrimRight(content, "\n"),
					Line:    lineNum,
				}
				if assertion.Type == AssertionTypeAST || assertion.Type == AssertionTypeTypes {
					parsed, err := Parse(assertion.Content)
					if err != nil {
						return ast.WalkStop, fmt.Errorf("line %d: failed to parse %s assertion in test '%s': %w", lineNum, language, currentTestCase.Name, err)
					}
					assertion.ParsedSexy = parsed
				}
				currentTestCase.Assertions = append(currentTestCase.Assertions, assertion)
			case language != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, currentTestCase.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if currentTestCase != nil {
		if err := validateTestCase(currentTestCase); err != nil {
			return nil, err
		}
		testCases = append(testCases, *currentTestCase)
	}
	return testCases, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func isInputFence(language string) bool {
	return language == string(InputTypeProgram)
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeTypes, AssertionTypeExecute, AssertionTypeCompileError, AssertionTypeWAT:
		return true
	}
	return false
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(testCase *TestCase) error {
	if testCase.InputType == "" {
		return fmt.Errorf("test '%s' has no input fence", testCase.Name)
	}
	if len(testCase.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", testCase.Name)
	}
	return nil
}

// getLineNumber calculates the line number of a given AST node
func getLineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	startPos := node.Lines().At(0).Start
	lineNum := 1
	for i := 0; i < startPos && i < len(source); i++ {
		if source[i] == '\n' {
			lineNum++
		}
	}
	return lineNum
}
