// Command cctoken obtains OAuth 2.0 access tokens for the client registrations in a YAML file,
// using the Client Credentials Grant.
package main

import (
	"context"
	"fmt"
	"os"
)

// Version is set at build time with -ldflags.
var Version = "(unknown version)"

func main() {
	if err := Main(context.Background(), Version, os.Stdout, os.Stderr, os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}
