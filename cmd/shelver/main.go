package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"shelver/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			reportError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// reportError prints err and, for errors raised by shelver's own packages,
// the operator hint that goes with them.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "shelver: %v\n", err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
}

func hintFor(err error) string {
	for _, marker := range []error{
		services.ErrSetup,
		services.ErrConfiguration,
		services.ErrValidation,
		services.ErrNotFound,
		services.ErrRelocation,
		services.ErrClassifier,
	} {
		if errors.Is(err, marker) {
			return services.ErrorHint(err)
		}
	}
	return ""
}
