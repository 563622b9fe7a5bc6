package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(newApp(), nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "stickies: %v\n", err)
		os.Exit(1)
	}
}
