// Command botarena runs turn based grid games between bots.
//
// Commands:
//  1. "serve" runs the HTTP server exposing the REST API, WebSocket spectating and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server, starting an internal HTTP API if none is reachable
//  3. "play" runs one match between bots and prints the replay
//  4. "maps" lists and validates map files
//
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/botarena/api"
	"github.com/wricardo/botarena/game/config"
	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
	"github.com/wricardo/botarena/game/session"
	"github.com/wricardo/botarena/game/store"
	"github.com/wricardo/botarena/transport/mcp"
	"github.com/wricardo/botarena/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Bot Arena"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "botarena",
		Usage:   AppName + ": turn based grid games for bots",
		Version: Version,
		// Bot command lines may contain commas
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "maps-dir",
				Value:   "maps",
				Usage:   "Directory holding <game>/<name>.map files",
				Sources: cli.EnvVars("MAPS_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "pretty",
				Usage:   "Human friendly console logs",
				Sources: cli.EnvVars("LOG_PRETTY"),
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			mapsCommand(),
		},
	}
}

// setupLogging configures the global zerolog logger
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := zerolog.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
	}
	if cmd.Bool("debug") {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cmd.Bool("pretty") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return ctx, nil
}

// serviceConfig selects the storage behind the game service
type serviceConfig struct {
	MapsDir    string
	ReplaysDir string // empty keeps replays in memory only
	DBPath     string // empty disables the results database
}

// services holds everything the commands wire together
type services struct {
	Maps     *config.Manager
	Sessions *session.Manager
	Results  *store.SQLiteStore
	Game     service.GameService
}

// Close releases the results database
func (s *services) Close() error {
	if s.Results != nil {
		return s.Results.Close()
	}
	return nil
}

// initializeServices wires the map, session and result stores into the game
// service. notifier may be nil.
func initializeServices(ctx context.Context, cfg serviceConfig, notifier service.Notifier) (*services, error) {
	maps, err := config.NewManager(cfg.MapsDir, engine.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create map manager: %w", err)
	}

	s := &services{Maps: maps}

	if cfg.ReplaysDir != "" {
		persistence, err := session.NewFilePersistence(cfg.ReplaysDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create replay persistence: %w", err)
		}
		s.Sessions = session.NewManagerWithPersistence(persistence)
	} else {
		s.Sessions = session.NewManager()
	}

	var opts []service.Option
	if cfg.DBPath != "" {
		results, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open results database: %w", err)
		}
		s.Results = results
		opts = append(opts, service.WithResultStore(results))
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}

	s.Game = service.NewGameService(s.Sessions, maps, opts...)
	return s, nil
}

// sessionCleanupRoutine periodically drops finished matches from memory.
// Their replays stay on disk.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupFinished(maxAge)
		}
	}
}

// mcpHandler serves MCP JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server with REST API, WebSocket spectating and an /mcp endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "replays-dir", Value: "replays", Usage: "Directory for finished match replays (empty keeps them in memory)", Sources: cli.EnvVars("REPLAYS_DIR")},
			&cli.StringFlag{Name: "db", Value: "botarena.db", Usage: "SQLite results database (empty disables results)", Sources: cli.EnvVars("DB_PATH")},
			&cli.DurationFlag{Name: "retention", Value: 24 * time.Hour, Usage: "How long finished matches stay in memory", Sources: cli.EnvVars("MATCH_RETENTION")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runHTTPServer,
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	svcs, err := initializeServices(ctx, serviceConfig{
		MapsDir:    cmd.String("maps-dir"),
		ReplaysDir: cmd.String("replays-dir"),
		DBPath:     cmd.String("db"),
	}, hub)
	if err != nil {
		return err
	}
	defer svcs.Close()

	go sessionCleanupRoutine(ctx, svcs.Sessions, time.Hour, cmd.Duration("retention"))

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	apiServer := api.NewServer(svcs.Game, hub)
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	// No write timeout: bot runs answer when the match is over
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("ws", "ws://"+addr+"/ws?match=<match_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP stdio server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "REST API to proxy; an internal server is started when it is unreachable",
				Sources: cli.EnvVars("BOTARENA_API_URL"),
			},
		},
		Action: runStdioMCP,
	}
}

// apiReachable reports whether a bot arena API answers at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server against an external API when one is
// reachable, otherwise against an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")

	if apiReachable(baseURL) {
		log.Info().Str("api", baseURL).Msg("using external API server for MCP")
	} else {
		log.Info().Str("api", baseURL).Msg("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		svcs, err := initializeServices(ctx, serviceConfig{MapsDir: cmd.String("maps-dir")}, hub)
		if err != nil {
			return err
		}
		defer svcs.Close()

		httpServer := &http.Server{Handler: api.NewServer(svcs.Game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	return server.ServeStdio(mcpClient.GetMCPServer())
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Run one match between bots and write its replay",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "game", Value: string(engine.Life), Usage: "Game variant (life, lights)"},
			&cli.StringFlag{Name: "map", Usage: "Map name (default map when empty)"},
			&cli.StringSliceFlag{Name: "bot", Usage: "Bot for the next seat: first, random or a command line (repeat per seat)"},
			&cli.IntFlag{Name: "turns", Usage: "Turn limit (map manager default when zero)"},
			&cli.IntFlag{Name: "sim-steps", Usage: "Life simulation steps after the last turn"},
			&cli.IntFlag{Name: "seed", Usage: "Random seed (random when zero)"},
			&cli.StringFlag{Name: "replay", Usage: "Write the replay JSON to this file instead of stdout"},
			&cli.StringFlag{Name: "db", Usage: "Record the result in this SQLite database", Sources: cli.EnvVars("DB_PATH")},
		},
		Action: runPlay,
	}
}

// runPlay plays a bot match to completion
func runPlay(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, serviceConfig{
		MapsDir: cmd.String("maps-dir"),
		DBPath:  cmd.String("db"),
	}, nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := svcs.Game.RunBots(ctx, service.RunRequest{
		Game:     engine.Variant(cmd.String("game")),
		Map:      cmd.String("map"),
		Bots:     cmd.StringSlice("bot"),
		Turns:    cmd.Int("turns"),
		SimSteps: cmd.Int("sim-steps"),
		Seed:     int64(cmd.Int("seed")),
	})
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		log.Warn().Str("match_id", result.MatchID).Msg(e)
	}
	log.Info().
		Str("match_id", result.MatchID).
		Str("cutoff", result.Cutoff).
		Int("turns", result.Turns).
		Ints("scores", result.Scores).
		Ints("winners", result.Winners).
		Msg("match over")

	replay, err := svcs.Game.Replay(ctx, result.MatchID)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path := cmd.String("replay"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create replay file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeReplay(out, replay)
}

func writeReplay(w io.Writer, replay *engine.Replay) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(replay)
}

func mapsCommand() *cli.Command {
	gameFlag := &cli.StringFlag{Name: "game", Usage: "Game variant (every game when empty)"}

	return &cli.Command{
		Name:  "maps",
		Usage: "List and validate maps",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the maps in the maps directory",
				Flags:  []cli.Flag{gameFlag},
				Action: runMapsList,
			},
			{
				Name:      "validate",
				Usage:     "Validate map files",
				ArgsUsage: "<file.map>...",
				Flags:     []cli.Flag{gameFlag},
				Action:    runMapsValidate,
			},
		},
	}
}

func runMapsList(ctx context.Context, cmd *cli.Command) error {
	maps, err := config.NewManager(cmd.String("maps-dir"), engine.DefaultOptions())
	if err != nil {
		return err
	}

	infos, err := maps.ListMaps(engine.Variant(cmd.String("game")))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tMAP\tSIZE\tPLAYERS\tDESCRIPTION")
	for _, m := range infos {
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%s\n", m.Game, m.MapID, m.Rows, m.Cols, m.Players, m.Description)
	}
	return w.Flush()
}

func runMapsValidate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("no map files given", 2)
	}

	out := cmd.Root().Writer
	variant := engine.Variant(cmd.String("game"))
	invalid := 0

	for _, file := range files {
		result := config.ValidateFile(variant, file)
		if result.Valid {
			fmt.Fprintf(out, "✓ %s (%s)\n", result.File, result.Game)
			for _, note := range result.Notes {
				fmt.Fprintf(out, "    %s\n", note)
			}
			continue
		}

		invalid++
		fmt.Fprintf(out, "✗ %s\n", result.File)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "    %s\n", e)
		}
	}

	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d maps invalid", invalid, len(files)), 1)
	}
	return nil
}
