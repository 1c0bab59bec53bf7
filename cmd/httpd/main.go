package main

import (
	"fmt"
	"os"

	"github.com/northpages/contentsync/internal/bootstrap"
)

func main() {
	if err := bootstrap.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "contentsync: %v\n", err)
		os.Exit(1)
	}
}
