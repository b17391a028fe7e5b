// moviesdemo provisions and serves the DynamoDB movies demo.
//
// # Commands
//
//	moviesdemo migrate   Create the movies table if it does not exist
//	moviesdemo tables    List the tables the current settings can see
//	moviesdemo serve     Start the web server
//	moviesdemo version   Print the version
//
// Settings come from moviesdemo.yaml, .env, .env.local and the environment.
// DB_TABLE_NAME is required by migrate; AWS_REGION defaults to us-east-1.
//
//	DB_TABLE_NAME=movies moviesdemo migrate
//	moviesdemo migrate --table movies --endpoint http://localhost:8000
//	moviesdemo migrate --table movies --local-dir ./data
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// A nil lookup reads the process environment and exports dotenv files
	// into it, where the AWS SDK picks them up.
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// commandError carries the message main prints in front of a failure.
type commandError struct {
	prefix string
	err    error
}

func (e *commandError) Error() string { return e.prefix + ": " + e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	root := newRootCmd(stdout, stderr, lookupEnv)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var cerr *commandError
		if errors.As(err, &cerr) {
			fmt.Fprintln(stderr, cerr.Error())
		} else {
			fmt.Fprintf(stderr, "moviesdemo: %v\n", err)
		}
		return 1
	}
	return 0
}
