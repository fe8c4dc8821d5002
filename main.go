// Command keydoor runs the Key and Door puzzle.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     state pushes and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none
//     is available
//  3. "play" runs the terminal frontend against a local session
//  4. "validate" checks level set files
//  5. "schema" writes the JSON Schema of the level set file format
//
// Flags control host/port, the levels and sessions directories, logging and
// optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/keydoor/api"
	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/levels"
	"github.com/wricardo/mcp-training/keydoor/game/service"
	"github.com/wricardo/mcp-training/keydoor/game/session"
	"github.com/wricardo/mcp-training/keydoor/game/solver"
	"github.com/wricardo/mcp-training/keydoor/game/terminal"
	"github.com/wricardo/mcp-training/keydoor/transport/mcp"
	"github.com/wricardo/mcp-training/keydoor/transport/websocket"
	"github.com/wricardo/mcp-training/keydoor/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Key and Door Puzzle Server"
)

const (
	sessionMaxAge       = 24 * time.Hour
	cleanupInterval     = 1 * time.Hour
	filesystemSyncEvery = 5 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("Error loading .env file: %v", err)
		}
	} else {
		log.Debug("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Root flags are visible to every command.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "keydoor",
		Usage:   AppName,
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "Directory containing level set files",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory where sessions are persisted",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Write logs as JSON",
				Sources: cli.EnvVars("LOG_JSON"),
			},
		}, ngrokFlags()...),
		Before: configureLogging,
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "External API server to reuse when it is running",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: mcpAction,
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Resume an existing session by ID",
					},
					&cli.StringFlag{
						Name:  "level-set",
						Usage: "Level set for a new session",
					},
				},
				Action: playAction,
			},
			{
				Name:      "validate",
				Usage:     "Validate level set files",
				ArgsUsage: "[file or directory]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "solve",
						Usage: "Run the solver on every level and reject unsolvable ones",
					},
					&cli.IntFlag{
						Name:  "max-states",
						Value: solver.DefaultMaxStates,
						Usage: "Solver search budget per level",
					},
				},
				Action: validateAction,
			},
			{
				Name:  "schema",
				Usage: "Write the JSON Schema of the level set file format",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Path to write the schema (stdout when empty)",
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func configureLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if cmd.Bool("log-json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return ctx, nil
}

// services bundles what initializeServices wires together
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
}

// initializeServices wires the level manager, session persistence and the
// game service. Persisted sessions are loaded before it returns.
func initializeServices(levelsDir, sessionsDir string) (*services, error) {
	levelManager, err := levels.NewManager(levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(sessionsDir, levelManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warnf("Failed to load persisted sessions: %v", err)
	}

	return &services{
		game:        service.NewGameService(sessionManager, levelManager),
		sessions:    sessionManager,
		persistence: persistence,
	}, nil
}

// startMaintenance runs the cleanup and filesystem sync routines until ctx is done
func (s *services) startMaintenance(ctx context.Context) {
	go sessionCleanupRoutine(ctx, s.sessions, cleanupInterval, sessionMaxAge)
	go filesystemSyncRoutine(ctx, s.sessions, s.persistence, filesystemSyncEvery)
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Infof("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithFilesystem(manager, persistence); pruned > 0 {
				log.Infof("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
			}
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.WithField("session", sess.ID).Info("Pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// newRouter mounts the REST API at the root and the MCP endpoint at /mcp
func newRouter(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(gameService, hub)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mainRouter
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	log.Infof("Starting %s v%s", AppName, Version)

	svc, err := initializeServices(cmd.String("levels-dir"), cmd.String("sessions-dir"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	svc.startMaintenance(ctx)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newRouter(svc.game, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorf("HTTP server shutdown error: %v", shutdownErr)
	}
	if saveErr := svc.sessions.SaveAllSessions(); saveErr != nil {
		log.Errorf("Failed to save sessions: %v", saveErr)
	}

	wg.Wait()
	log.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Errorf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.WithField("url", ngrokURL).Info("Ngrok tunnel established")
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Errorf("Ngrok server error: %v", err)
	}
	log.Info("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalAPI serves the REST API on a random loopback port and
// returns its base URL
func startInternalAPI(ctx context.Context, gameService service.GameService) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}
	internalAddr := listener.Addr().String()
	log.Infof("Starting internal HTTP server on %s for MCP stdio", internalAddr)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Internal HTTP server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	return "http://" + internalAddr, nil
}

// mcpAction runs an MCP stdio server. It reuses an external API when one is
// running and otherwise starts an internal one.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")
	log.Infof("Checking for external API server at %s...", baseURL)

	if externalAPIAvailable(baseURL) {
		log.Infof("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(cmd.String("levels-dir"), cmd.String("sessions-dir"))
		if err != nil {
			return err
		}
		svc.startMaintenance(ctx)

		baseURL, err = startInternalAPI(ctx, svc.game)
		if err != nil {
			return err
		}
	}

	mcpClient := mcp.NewClient(baseURL)
	log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// resolvePlaySession returns sessionID when it exists and creates a new
// session otherwise
func resolvePlaySession(ctx context.Context, gameService service.GameService, sessionID, levelSet string) (string, error) {
	if sessionID != "" {
		if info, err := gameService.GetSession(ctx, sessionID); err == nil {
			return info.ID, nil
		}
		log.Warnf("Session %s not found, creating a new one", sessionID)
	}
	info, err := gameService.CreateSession(ctx, levelSet)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(cmd.String("levels-dir"), cmd.String("sessions-dir"))
	if err != nil {
		return err
	}

	sessionID, err := resolvePlaySession(ctx, svc.game, cmd.String("session"), cmd.String("level-set"))
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}

	// Log lines would tear the screen
	out := log.StandardLogger().Out
	log.SetOutput(io.Discard)
	defer log.SetOutput(out)

	runErr := terminal.New(screen, svc.game, sessionID).Run(ctx)
	screen.Fini()

	if runErr != nil {
		return runErr
	}
	fmt.Printf("Session %s saved. Resume with: keydoor play --session %s\n", sessionID, sessionID)
	return nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	target := cmd.String("levels-dir")
	if cmd.Args().Len() > 0 {
		target = cmd.Args().First()
	}
	opts := validate.Options{
		Grid:      engine.DefaultGrid(),
		Solve:     cmd.Bool("solve"),
		MaxStates: cmd.Int("max-states"),
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	var results []validate.ValidationResult
	if info.IsDir() {
		fmt.Printf("Validating level sets in: %s\n", target)
		results, err = validate.Dir(ctx, target, opts)
		if err != nil {
			return err
		}
	} else {
		results = []validate.ValidationResult{validate.File(ctx, target, opts)}
	}
	return validate.Report(os.Stdout, results)
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema := buildSchema()
	if out := cmd.String("out"); out != "" {
		return writeSchema(out, schema)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = fmt.Println(string(data))
	return err
}
