package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.newFlagSet("login")
	user := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return usageError("login requires -user")
	}
	if *password == "" {
		pw, err := readLine(a)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		*password = pw
	}

	client, err := a.api()
	if err != nil {
		return err
	}
	if _, err := client.Auth().Login(ctx, *user, *password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", *user)
	if exp, ok := a.sess.ExpiresAt(); ok {
		fmt.Fprintf(a.out, "Token expires at %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	fs := a.newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	if !a.sess.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := client.Auth().Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// readLine reads a single line from the command input
func readLine(a *app) (string, error) {
	fmt.Fprint(a.errOut, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
