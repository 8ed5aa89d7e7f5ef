package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	displayName, err := c.io.ReadInput("Display name (shown to collaborators, optional): ")
	if err != nil {
		return fmt.Errorf("failed to read display name: %w", err)
	}

	masterPassword, err := c.io.ReadPassword("Master password (min 12 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirmPassword, err := c.io.ReadPassword("Confirm master password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	if masterPassword != confirmPassword {
		return fmt.Errorf("passwords do not match")
	}

	c.io.Println()
	c.io.Println("Registering user...")

	result, err := c.authService.Register(ctx, username, displayName, masterPassword)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", result.UserID)
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Println()
	c.io.Println("⚠️  IMPORTANT: Remember your master password!")
	c.io.Println("   The server stores only a hash, the password cannot be recovered.")
	c.io.Println()
	c.io.Println("Please run 'boardsync login' to start using the board.")

	return nil
}
