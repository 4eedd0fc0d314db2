package main

import (
	"fmt"
	"os"

	"shoe_pos/internal"
)

func main() {
	if err := internal.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pos-admin:", err)
		os.Exit(1)
	}
}
