package main

import (
	"os"

	"github.com/firefly-engineering/realm/cmd"
	"github.com/firefly-engineering/realm/internal/errors"
)

func main() {
	code, err := cmd.Execute()
	if err != nil {
		os.Exit(errors.GetExitCode(err))
	}
	os.Exit(code)
}
