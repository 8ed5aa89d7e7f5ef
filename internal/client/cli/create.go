package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/iudanet/boardsync/internal/models"
)

func (c *Cli) runCreate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: create rect|circle|text [flags]")
	}

	var objType models.ObjectType
	switch args[0] {
	case "rect", "rectangle":
		objType = models.ObjectTypeRectangle
	case "circle":
		objType = models.ObjectTypeCircle
	case "text":
		objType = models.ObjectTypeText
	default:
		return fmt.Errorf("unknown object type %q, expected rect, circle or text", args[0])
	}

	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	x := fs.Float64("x", 100, "x coordinate")
	y := fs.Float64("y", 100, "y coordinate")
	w := fs.Float64("w", 200, "width (rect/text)")
	h := fs.Float64("h", 150, "height (rect/text)")
	r := fs.Float64("r", 75, "radius (circle)")
	color := fs.String("color", "#4a90d9", "fill color, #rrggbb")
	text := fs.String("text", "", "content (text objects)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	obj := &models.CanvasObject{
		Type:  objType,
		X:     *x,
		Y:     *y,
		Color: *color,
	}
	switch objType {
	case models.ObjectTypeCircle:
		obj.Radius = *r
	case models.ObjectTypeText:
		obj.Width = *w
		obj.Height = *h
		obj.Text = *text
	default:
		obj.Width = *w
		obj.Height = *h
	}

	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	id, err := board.eng.CreateOptimistic(ctx, obj)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	created, ok := board.eng.Get(id)
	if !ok {
		return fmt.Errorf("object %s vanished after create", id)
	}

	c.io.Printf("✓ Created %s %s at (%.0f, %.0f), version %d\n",
		created.Type, created.ID, created.X, created.Y, created.Version)
	return nil
}
