package main

import (
	"fmt"
	"os"

	"github.com/xraph/factor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "factorctl:", err)
		os.Exit(1)
	}
}
