package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/boardsync/internal/client/engine"
	"github.com/iudanet/boardsync/internal/client/lock"
	"github.com/iudanet/boardsync/internal/client/selection"
	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/client/store/memstore"
	"github.com/iudanet/boardsync/internal/client/store/wsstore"
	"github.com/iudanet/boardsync/internal/client/transform"
	"github.com/iudanet/boardsync/internal/models"
)

// snapshotWait сколько ждем первый снапшот после подключения
const snapshotWait = 5 * time.Second

// localUserID используется в --local режиме, где сервера и логина нет
const localUserID = "local"

// boardSession собранный стек для работы с доской:
// store -> engine -> locks -> selection/gestures
type boardSession struct {
	eng      *engine.Engine
	locks    *lock.Manager
	sel      *selection.Manager
	gestures *transform.Controller
	close    func()
}

// connectBoard поднимает рабочий стек доски.
// В --local режиме вместо сервера используется in-memory store
func (c *Cli) connectBoard(ctx context.Context) (*boardSession, error) {
	if c.local {
		st := memstore.New()
		eng := engine.New(st, localUserID, c.logger)
		eng.Start()

		return c.assemble(eng, st, func() {
			eng.Stop()
			st.Close()
		}, localUserID), nil
	}

	sess, err := c.authService.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("not authenticated, run 'boardsync login' first: %w", err)
	}

	token, err := c.authService.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	st, err := wsstore.New(ctx, c.apiClient.BoardWebsocketURL(), token, c.logger)
	if err != nil {
		return nil, err
	}

	eng := engine.New(st, sess.UserID, c.logger)
	eng.Start()
	waitFirstSnapshot(eng, snapshotWait)

	closeFn := func() {
		// Кешируем последний снапшот для быстрого первого рендера
		if err := c.sessions.SaveSnapshot(ctx, eng.Objects()); err != nil {
			c.logger.Debug("failed to cache board snapshot", "error", err)
		}
		eng.Stop()
		if err := st.Close(); err != nil {
			c.logger.Debug("failed to close board connection", "error", err)
		}
	}

	return c.assemble(eng, st, closeFn, sess.UserID), nil
}

func (c *Cli) assemble(eng *engine.Engine, objectStore store.ObjectStore, closeFn func(), userID string) *boardSession {
	locks := lock.NewManager(objectStore, eng, c.logger)
	return &boardSession{
		eng:      eng,
		locks:    locks,
		sel:      selection.NewManager(locks, eng, userID, c.logger),
		gestures: transform.NewController(eng, locks, userID, c.logger),
		close:    closeFn,
	}
}

// waitFirstSnapshot ждет применения первого снапшота (revision > 0)
func waitFirstSnapshot(eng *engine.Engine, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if eng.Revision() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (c *Cli) runList(ctx context.Context) error {
	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	c.printObjects(board.eng.Objects())
	return nil
}

func (c *Cli) runWatch(ctx context.Context) error {
	board, err := c.connectBoard(ctx)
	if err != nil {
		return err
	}
	defer board.close()

	c.io.Println("Watching board, press Ctrl+C to stop...")
	c.io.Println()
	c.printObjects(board.eng.Objects())

	changes := make(chan struct{}, 1)
	unsubscribe := board.eng.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// Пользовательские уведомления о rollback-ах
	offNotice := board.eng.OnNotice(func(n engine.Notice) {
		c.io.Printf("! %s: %s\n", n.Kind, n.Message)
	})
	defer offNotice()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			c.io.Println()
			c.printObjects(board.eng.Objects())
		}
	}
}

func (c *Cli) printObjects(objects []*models.CanvasObject) {
	if len(objects) == 0 {
		c.io.Println("Board is empty.")
		return
	}

	c.io.Printf("%d object(s):\n", len(objects))
	for _, obj := range objects {
		line := fmt.Sprintf("  %s  %-9s v%-3d (%.0f, %.0f)", obj.ID, obj.Type, obj.Version, obj.X, obj.Y)
		switch obj.Type {
		case models.ObjectTypeCircle:
			line += fmt.Sprintf(" r=%.0f", obj.Radius)
		default:
			line += fmt.Sprintf(" %.0fx%.0f", obj.Width, obj.Height)
		}
		if obj.Rotation != 0 {
			line += fmt.Sprintf(" rot=%.0f°", obj.Rotation)
		}
		line += " " + obj.Color
		if obj.Text != "" {
			line += fmt.Sprintf(" %q", obj.Text)
		}
		if obj.IsLocked() {
			line += fmt.Sprintf(" [locked by %s]", obj.LockedBy)
		}
		c.io.Println(line)
	}
}
