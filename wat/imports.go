package wat

import (
	"fmt"
	"io"
)

// PrintImports returns the "imports" module that compiled programs link
// against. Each print function writes its argument to w and returns it.
func PrintImports(w io.Writer) Imports {
	return Imports{
		"imports": {
			"print_num": func(args []int32) (int32, error) {
				_, err := fmt.Fprintf(w, "%d\n", args[0])
				return args[0], err
			},
			"print_bool": func(args []int32) (int32, error) {
				s := "True"
				if args[0] == 0 {
					s = "False"
				}
				_, err := fmt.Fprintln(w, s)
				return args[0], err
			},
			"print_none": func(args []int32) (int32, error) {
				_, err := fmt.Fprintln(w, "None")
				return args[0], err
			},
		},
	}
}
