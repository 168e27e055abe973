// Command chocowat compiles a statically typed subset of Python to
// WebAssembly text and runs it.
package main

import "os"

func main() {
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.main(os.Args[1:]))
}
