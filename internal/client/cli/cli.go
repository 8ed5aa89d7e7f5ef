package cli

import (
	"fmt"
	"log/slog"

	"github.com/iudanet/boardsync/internal/client/api"
	"github.com/iudanet/boardsync/internal/client/auth"
	"github.com/iudanet/boardsync/internal/client/iocli"
	"github.com/iudanet/boardsync/internal/client/session"
)

// Cli диспетчер консольных команд клиента
type Cli struct {
	apiClient   *api.Client
	authService *auth.Service
	sessions    session.Storage
	io          iocli.IO
	logger      *slog.Logger

	// local == true: команды доски работают с in-memory store без сервера
	local bool
}

// New создает CLI поверх готовых сервисов
func New(apiClient *api.Client, authService *auth.Service, sessions session.Storage, io iocli.IO, logger *slog.Logger, local bool) *Cli {
	return &Cli{
		apiClient:   apiClient,
		authService: authService,
		sessions:    sessions,
		io:          io,
		logger:      logger,
		local:       local,
	}
}

func PrintUsage() {
	fmt.Println("BoardSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  boardsync [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version        Show version information")
	fmt.Println("  --server URL     Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH        Path to local database (default: boardsync-client.db)")
	fmt.Println("  --local          Board commands run against an in-memory board (no server)")
	fmt.Println()
	fmt.Println("Auth commands:")
	fmt.Println("  register                      Register new user")
	fmt.Println("  login                         Login to server")
	fmt.Println("  logout                        Logout and delete local session")
	fmt.Println("  status                        Show authentication status")
	fmt.Println()
	fmt.Println("Board commands:")
	fmt.Println("  list                          List board objects")
	fmt.Println("  watch                         Stream board snapshots until interrupted")
	fmt.Println("  create rect|circle|text ...   Create an object")
	fmt.Println("  move ID DX DY                 Drag an object by (dx, dy)")
	fmt.Println("  resize ID HANDLE DX DY        Resize via handle (nw,n,ne,e,se,s,sw,w)")
	fmt.Println("  rotate ID DEGREES             Rotate an object by delta degrees")
	fmt.Println("  delete ID                     Delete an object")
	fmt.Println("  select type|wand|all ...      Group selection (prints selected ids)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  boardsync register")
	fmt.Println("  boardsync login")
	fmt.Println("  boardsync create rect -x 100 -y 100 -w 200 -h 150 -color '#ff0000'")
	fmt.Println("  boardsync create circle -x 500 -y 500 -r 75 -color '#00aaff'")
	fmt.Println("  boardsync create text -x 50 -y 50 -text 'hello' -color '#000000'")
	fmt.Println("  boardsync move b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 40 -25")
	fmt.Println("  boardsync select wand b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 30")
	fmt.Println("  boardsync --local create rect -x 0 -y 0")
	fmt.Println("  boardsync --server https://board.example.com login")
}
