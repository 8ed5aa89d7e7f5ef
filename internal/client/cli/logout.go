package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")
	c.io.Println()

	// Сервер уведомляется best effort, локальная сессия удаляется всегда
	if err := c.authService.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logged out.")
	c.io.Println("Local session removed; cached board snapshot is kept.")

	return nil
}
