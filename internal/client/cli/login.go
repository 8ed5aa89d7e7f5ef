package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	masterPassword, err := c.io.ReadPassword("Master password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Logging in...")

	sess, err := c.authService.Login(ctx, username, masterPassword)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", sess.Username)
	if sess.DisplayName != "" {
		c.io.Printf("Display name: %s\n", sess.DisplayName)
	}
	c.io.Printf("Token expires: %s\n", sess.ExpiresAt.Format("2006-01-02 15:04:05"))

	return nil
}
