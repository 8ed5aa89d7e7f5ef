package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iudanet/boardsync/internal/client/selection"
	"github.com/iudanet/boardsync/internal/models"
)

func (c *Cli) runSelect(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: select type TYPE | select wand ID [TOLERANCE] | select all")
	}

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	var result *selection.Result

	switch args[0] {
	case "type":
		if len(args) != 2 {
			return fmt.Errorf("usage: select type rectangle|circle|text")
		}
		objType := models.ObjectType(args[1])
		if !objType.Valid() {
			return fmt.Errorf("unknown object type %q", args[1])
		}
		result, err = board.sel.SelectByType(ctx, objType, selection.ModeReplace)

	case "wand":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: select wand ID [TOLERANCE]")
		}
		tolerance := 30.0
		if len(args) == 3 {
			tolerance, err = strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid tolerance %q: %w", args[2], err)
			}
		}
		result, err = board.sel.SelectWand(ctx, args[1], tolerance, selection.ModeReplace)

	case "all":
		result, err = board.sel.SelectAll(ctx)

	default:
		return fmt.Errorf("unknown select mode %q", args[0])
	}

	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if len(result.Selected) == 0 {
		c.io.Println("Nothing selected.")
	} else {
		c.io.Printf("Selected %d object(s):\n", len(result.Selected))
		for _, id := range result.Selected {
			c.io.Printf("  %s\n", id)
		}
	}

	for id, holder := range result.Blocked {
		c.io.Printf("  %s skipped: locked by %s\n", id, holder)
	}

	// Одноразовая CLI-сессия: отпускаем leases перед выходом
	if err := board.sel.Clear(ctx); err != nil {
		c.logger.Debug("failed to clear selection", "error", err)
	}

	return nil
}
