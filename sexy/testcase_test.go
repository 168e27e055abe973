package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := `# Arithmetic

## Test: addition
` + fence + `py-program
1 + 2
` + fence + `
` + fence + `ast
(program (expr (binary "+" (int 1) (int 2))))
` + fence + `

## Test: subtraction
` + fence + `py-program
print(1 - 2)
` + fence + `
` + fence + `execute
-1
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "addition")
	be.Equal(t, tc1.Input, "1 + 2")
	be.Equal(t, tc1.InputType, InputTypeProgram)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(program (expr (binary "+" (int 1) (int 2))))`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "subtraction")
	be.Equal(t, tc2.Input, "print(1 - 2)")
	be.Equal(t, len(tc2.Assertions), 1)
	be.Equal(t, tc2.Assertions[0].Type, AssertionTypeExecute)
	be.Equal(t, tc2.Assertions[0].Content, "-1")
	be.True(t, tc2.Assertions[0].ParsedSexy == nil)
}

func TestExtractTestCases_MultipleAssertions(t *testing.T) {
	markdown := `## Test: everything
` + fence + `py-program
x: int = 1
x
x > 0
` + fence + `
` + fence + `types
(int bool)
` + fence + `
` + fence + `wat
global.get $x
i32.gt_s
` + fence + `
` + fence + `execute
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Input, "x: int = 1\nx\nx > 0")
	be.Equal(t, len(tc.Assertions), 3)
	be.Equal(t, tc.Assertions[0].Type, AssertionTypeTypes)
	be.Equal(t, tc.Assertions[0].ParsedSexy.String(), "(int bool)")
	be.Equal(t, tc.Assertions[1].Type, AssertionTypeWAT)
	be.Equal(t, tc.Assertions[1].Content, "global.get $x\ni32.gt_s")
	be.Equal(t, tc.Assertions[2].Type, AssertionTypeExecute)
	be.Equal(t, tc.Assertions[2].Content, "")
}

func TestExtractTestCases_CompileError(t *testing.T) {
	markdown := `## Test: undefined
` + fence + `py-program
y = 1
` + fence + `
` + fence + `compile-error
ReferenceError: y is not defined
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, testCases[0].Assertions[0].Type, AssertionTypeCompileError)
	be.Equal(t, testCases[0].Assertions[0].Content, "ReferenceError: y is not defined")
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Notes

Some prose and a plain fence.

` + fence + `
not a test
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := `## Test: invalid sexy
` + fence + `py-program
1 + 2
` + fence + `
` + fence + `ast
(unclosed list
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "failed to parse ast assertion in test 'invalid sexy'")
	be.Err(t, err, "line 6")
}

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	for _, language := range []string{"py-program", "ast", "types", "execute", "compile-error", "wat"} {
		t.Run(language, func(t *testing.T) {
			markdown := "# Document\n\n" + fence + language + "\n1\n" + fence + "\n"
			_, err := ExtractTestCases(markdown)
			be.Err(t, err, "line 4: "+language+" fence found outside of test case")
		})
	}
}

func TestExtractTestCases_UnknownFenceOutsideTest(t *testing.T) {
	markdown := "# Document\n\n" + fence + "go\nfunc main() {}\n" + fence + "\n"
	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "unknown fence language 'go' found outside of test case")
}

func TestExtractTestCases_UnknownFenceInTest(t *testing.T) {
	markdown := `## Test: with unknown fence
` + fence + `python
x = 1
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "unknown fence language 'python' in test 'with unknown fence'")
}

func TestExtractTestCases_TestMissingInputFence(t *testing.T) {
	markdown := `## Test: no input
` + fence + `execute
1
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "test 'no input' has no input fence")
}

func TestExtractTestCases_TestMissingAssertionFence(t *testing.T) {
	markdown := `## Test: no assertion
` + fence + `py-program
pass
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "test 'no assertion' has no assertion fences")
}

func TestExtractTestCases_MultipleInputFences(t *testing.T) {
	markdown := `## Test: two inputs
` + fence + `py-program
pass
` + fence + `
` + fence + `py-program
pass
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "multiple input fences found in test 'two inputs'")
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := `## Test: fine
` + fence + `py-program
pass
` + fence + `
` + fence + `execute
` + fence + `

## Test: broken
` + fence + `py-program
pass
` + fence

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "test 'broken' has no assertion fences")
}

func TestExtractTestCases_IgnoresOtherHeadings(t *testing.T) {
	markdown := `# Suite

## Test: first
` + fence + `py-program
print(1)
` + fence + `
` + fence + `execute
1
` + fence + `

## Background

Prose between tests does not end the current test.
`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.True(t, strings.HasPrefix(testCases[0].Input, "print"))
	be.Equal(t, testCases[0].Assertions[0].Line, 8)
}
