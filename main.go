package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/cmd"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/provision"
)

func main() {
	if err := cmd.Run(context.Background(), os.Args[1:]...); err != nil {
		var verr provision.ValidationError
		switch {
		case errors.As(err, &verr):
			fmt.Fprintf(os.Stderr, "Invalid request: %v\n", verr)
		case errors.Is(err, provision.ErrCARequest):
			fmt.Fprintf(os.Stderr, "Certificate authority request failed: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(1)
	}
}
