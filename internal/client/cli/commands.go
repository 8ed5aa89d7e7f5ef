package cli

import (
	"context"
	"fmt"
	"os"
)

// Run выполняет одну команду и завершает процесс при ошибке
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "list":
		err = c.runList(ctx)
	case "watch":
		err = c.runWatch(ctx)
	case "create":
		err = c.runCreate(ctx, args)
	case "move":
		err = c.runMove(ctx, args)
	case "resize":
		err = c.runResize(ctx, args)
	case "rotate":
		err = c.runRotate(ctx, args)
	case "delete":
		err = c.runDelete(ctx, args)
	case "select":
		err = c.runSelect(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
