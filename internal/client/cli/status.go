package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	// Проверяем наличие сохраненной сессии
	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if !isAuth {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'boardsync login' to authenticate.")
		return nil
	}

	sess, err := c.authService.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	remaining := time.Until(sess.ExpiresAt)

	c.io.Println("Status: Authenticated")
	c.io.Printf("Username: %s\n", sess.Username)
	if sess.DisplayName != "" {
		c.io.Printf("Display name: %s\n", sess.DisplayName)
	}
	c.io.Printf("User ID: %s\n", sess.UserID)
	c.io.Printf("Token expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))
	if remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	}

	// Кешированный снапшот доски, если есть
	cached, err := c.sessions.GetSnapshot(ctx)
	if err == nil && cached != nil {
		c.io.Printf("Cached board snapshot: %d objects\n", len(cached))
	}

	return nil
}
