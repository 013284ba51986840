package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in to a FlowDeck server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client := newClient()
		if err := client.Login(ctx, args[0], password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveToken(client.Token()); err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", args[0])
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <name> <email>",
	Short: "Create an account on a FlowDeck server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client := newClient()
		if err := client.Register(ctx, args[0], args[1], password, confirm); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := saveToken(client.Token()); err != nil {
			return err
		}

		fmt.Printf("Account created, logged in as %s\n", args[1])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client := newClient()
		if client.Token() != "" {
			// Best effort; the local token is cleared regardless.
			if err := client.Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: server logout failed: %v\n", err)
			}
		}
		if err := clearToken(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
