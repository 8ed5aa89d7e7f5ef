package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iudanet/boardsync/internal/client/transform"
)

func (c *Cli) runMove(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: move ID DX DY")
	}
	id := args[0]
	dx, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid dx %q: %w", args[1], err)
	}
	dy, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid dy %q: %w", args[2], err)
	}

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	if err := board.gestures.BeginDrag(ctx, id); err != nil {
		return dragError(err)
	}
	board.gestures.Drag(dx, dy)
	if err := board.gestures.EndDrag(ctx); err != nil {
		return fmt.Errorf("move failed: %w", err)
	}
	c.releaseLock(ctx, board, id)

	moved, ok := board.eng.Get(id)
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	c.io.Printf("✓ Moved %s to (%.0f, %.0f)\n", id, moved.X, moved.Y)
	return nil
}

func (c *Cli) runResize(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: resize ID HANDLE DX DY (handles: nw,n,ne,e,se,s,sw,w)")
	}
	id := args[0]
	handle := transform.Handle(args[1])
	dx, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid dx %q: %w", args[2], err)
	}
	dy, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid dy %q: %w", args[3], err)
	}

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	if err := board.gestures.BeginResize(ctx, id, handle, false); err != nil {
		return dragError(err)
	}
	board.gestures.Resize(dx, dy)
	if err := board.gestures.EndResize(ctx); err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}
	c.releaseLock(ctx, board, id)

	resized, ok := board.eng.Get(id)
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	c.io.Printf("✓ Resized %s, now %.0fx%.0f at (%.0f, %.0f)\n",
		id, resized.Width, resized.Height, resized.X, resized.Y)
	return nil
}

func (c *Cli) runRotate(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: rotate ID DEGREES")
	}
	id := args[0]
	deg, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid degrees %q: %w", args[1], err)
	}

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	if err := board.gestures.RotateBy(ctx, id, deg); err != nil {
		return dragError(err)
	}
	c.releaseLock(ctx, board, id)

	rotated, ok := board.eng.Get(id)
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	c.io.Printf("✓ Rotated %s to %.0f°\n", id, rotated.Rotation)
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete ID")
	}
	id := args[0]

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	if err := board.eng.DeleteOptimistic(ctx, id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	c.io.Printf("✓ Deleted %s\n", id)
	return nil
}

// releaseLock отпускает lease после завершенного жеста, best effort
func (c *Cli) releaseLock(ctx context.Context, board *boardSession, id string) {
	if _, err := board.locks.Release(ctx, id, board.eng.UserID()); err != nil {
		c.logger.Debug("failed to release lock", "object_id", id, "error", err)
	}
}

// dragError превращает отказ в захвате lease в понятное сообщение
func dragError(err error) error {
	var lockErr transform.ErrLockRequired
	if errors.As(err, &lockErr) && lockErr.Holder != "" {
		return fmt.Errorf("object %s is being edited by %s", lockErr.ObjectID, lockErr.Holder)
	}
	return err
}
