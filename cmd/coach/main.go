// Command coach is a terminal client for the CoachAI interview coaching
// service.
//
// Usage:
//
//	coach [--chat ID]            open the interactive client
//	coach login --email ADDRESS  sign in; the password is read from stdin
//	coach logout                 forget the saved session
//	coach status                 show whether a session is saved
//	coach chats                  list chats
//
// Configuration comes from ~/.coach/config.yaml, a .env file in the working
// directory, COACH_* environment variables and flags, in increasing order of
// precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coach: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	root := newRootCmd(env)
	root.SetArgs(os.Args[1:])
	return root.ExecuteContext(ctx)
}

// loadEnvironment reads everything the commands need from the process. This
// is the only place environment variables are read.
func loadEnvironment() (environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return environment{}, fmt.Errorf("read .env: %w", err)
	}
	return environment{home: home, lookup: chainLookup(os.LookupEnv, dotenv)}, nil
}
