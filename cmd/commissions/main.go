package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd, ctx := newRootCommand()
	if err := execute(cmd, ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
