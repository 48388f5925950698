package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"

	"zodiac/cli"
	"zodiac/config"
	"zodiac/database"
	"zodiac/handlers"
	"zodiac/service"
	"zodiac/state"
)

func main() {
	// The self-update helper re-executes this binary with a marker flag;
	// handle it before normal flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "--self-update-helper" {
		runUpdateHelper(os.Args[2:])
		return
	}

	// Load environment variables and parse CLI flags
	config.ParseFlags()

	logFile, err := setupLogging(config.Settings.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// Check if CLI mode is requested
	if config.Settings.CLIMode {
		log.SetFlags(log.Ldate | log.Ltime)
		mainCLI()
		return
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("System starting up...")

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize services
	if err := service.InitServices(database.DB, state.Global); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// One synchronous update check before serving. A failed or slow fetch
	// only costs the configured timeout and never blocks startup beyond it.
	if config.Settings.StartupUpdateCheck {
		ctx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(config.Settings.UpdateCheckTimeoutSeconds)*time.Second,
		)
		service.GlobalServices.Update.Evaluate(ctx, time.Now())
		cancel()
	}

	// Set Gin mode
	if config.Settings.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Direct Gin logs to the configured log file
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()

	// Disable Gin color logs to avoid ANSI issues on Windows terminals
	gin.DisableConsoleColor()

	// Create router
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// API routes
	api := r.Group("/api")
	{
		// Preference routes
		api.GET("/preferences", handlers.GetPreferences)
		api.PUT("/preferences", handlers.UpdatePreferences)
		api.GET("/steam/id", handlers.GetSteamID)

		// Game routes
		api.GET("/paths", handlers.GetPaths)
		api.GET("/saves", handlers.ListSaves)
		api.GET("/archives", handlers.ListArchives)
		api.GET("/archives/entries", handlers.GetArchiveEntries)
		api.POST("/archives/extract", handlers.ExtractArchiveEntry)
		api.POST("/mods/check", handlers.CheckModLayout)
		api.POST("/mods/fix", handlers.FixModLayout)

		// Session routes
		api.POST("/launch", handlers.LaunchGame)
		api.GET("/launches", handlers.ListSessions)
		api.POST("/launches/:id/stop", handlers.StopSession)

		// Update routes
		api.GET("/update/check", handlers.CheckUpdate)
		api.GET("/update/prompt", handlers.GetUpdatePrompt)
		api.POST("/update/prompt/response", handlers.RespondUpdatePrompt)
		api.POST("/update/code", handlers.GenerateUpdateCode)
		api.POST("/update/apply", handlers.ApplyUpdate)
		api.GET("/update/proxy", handlers.GetUpdateProxy)
		api.PUT("/update/proxy", handlers.SetUpdateProxy)

		// Error log routes
		api.GET("/error-logs", handlers.GetErrorLogs)
		api.DELETE("/error-logs", handlers.ClearErrorLogs)

		// System shutdown routes
		api.POST("/shutdown/generate-code", handlers.GenerateShutdownCode)
		api.POST("/shutdown/verify", handlers.VerifyAndShutdown)

		// Health route
		api.GET("/health", handlers.HealthCheck)
	}

	// Find an available port
	port := findAvailablePort(config.Settings.Port)
	if port != config.Settings.Port {
		log.Printf("Default port %d is busy. Switched to %d", config.Settings.Port, port)
	}

	// Create HTTP server
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on http://127.0.0.1:%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Optionally open browser automatically
	if config.Settings.OpenBrowser {
		go func() {
			time.Sleep(1500 * time.Millisecond)
			if err := browser.OpenURL(fmt.Sprintf("http://127.0.0.1:%d/api/health", port)); err != nil {
				log.Printf("Failed to open browser: %v", err)
			}
		}()
	}

	// Create shutdown channel and expose to handlers
	shutdownChan := make(chan bool, 1)
	handlers.SetShutdownChannel(shutdownChan)

	// Wait for OS interrupt or API-triggered shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Received interrupt signal")
	case <-shutdownChan:
		log.Println("Shutdown triggered via API")
	}

	log.Println("System shutting down...")

	// Game sessions belong to the user and keep running; only drop our
	// bookkeeping for ones that already exited.
	if n := state.Global.PruneExitedSessions(); n > 0 {
		log.Printf("Pruned %d exited game session(s)", n)
	}
	if remaining := len(state.Global.Sessions()); remaining > 0 {
		log.Printf("Leaving %d game session(s) running", remaining)
	}

	// Close database connection
	if err := database.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	// Gracefully shut down HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// findAvailablePort searches for an available port
func findAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port
		}
	}
	log.Fatal("No available ports found")
	return startPort
}

// mainCLI entrypoint for CLI (HTTP client mode)
func mainCLI() {
	// CLI mode skips DB load; acts as HTTP client
	serverURL := config.Settings.CLIServer

	fmt.Printf("Zodiac CLI - Connecting to %s\n", serverURL)

	cliInstance, err := cli.NewCLIHttp(serverURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTips:")
		fmt.Println("  1. Make sure the zodiac server is running:")
		fmt.Println("     ./zodiac")
		fmt.Println("  2. Or specify a different server:")
		fmt.Printf("     ./zodiac --cli --server http://your-server:%d\n", config.Settings.Port)
		os.Exit(1)
	}

	// Start CLI loop (readline handles Ctrl+C automatically)
	cliInstance.Start()
}

// runUpdateHelper replaces the running binary with a freshly downloaded one.
// It waits for the parent process to exit, copies the new binary over the
// old path, cleans up the download directory and restarts the service with
// the original arguments.
func runUpdateHelper(args []string) {
	fs := flag.NewFlagSet("self-update-helper", flag.ExitOnError)
	target := fs.String("target", "", "path of the binary to replace")
	source := fs.String("source", "", "path of the new binary")
	parentPID := fs.Int("parent-pid", 0, "pid of the exiting parent process")
	cleanup := fs.String("cleanup", "", "temp directory to remove afterwards")
	helperLog := fs.String("helper-log", "", "log file for helper output")
	restart := fs.Bool("restart", false, "restart the target after replacing it")

	var passthrough []string
	for i, a := range args {
		if a == "--" {
			passthrough = args[i+1:]
			args = args[:i]
			break
		}
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	log.SetFlags(log.Ldate | log.Ltime)
	if *helperLog != "" {
		if f, err := os.OpenFile(*helperLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	}

	if *target == "" || *source == "" {
		log.Printf("update-helper: missing --target or --source")
		os.Exit(2)
	}

	waitForParentExit(*parentPID, 30*time.Second)

	// The old binary may stay locked briefly on Windows even after the
	// process handle signals exit.
	var copyErr error
	for attempt := 0; attempt < 10; attempt++ {
		copyErr = replaceFile(*source, *target)
		if copyErr == nil {
			break
		}
		log.Printf("update-helper: replace attempt %d failed: %v", attempt+1, copyErr)
		time.Sleep(500 * time.Millisecond)
	}
	if copyErr != nil {
		log.Printf("update-helper: giving up: %v", copyErr)
		os.Exit(1)
	}
	log.Printf("update-helper: replaced %s", *target)

	if *cleanup != "" {
		if err := os.RemoveAll(*cleanup); err != nil {
			log.Printf("update-helper: cleanup failed: %v", err)
		}
	}

	if *restart {
		cmd := exec.Command(*target, passthrough...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			log.Printf("update-helper: restart failed: %v", err)
			os.Exit(1)
		}
		log.Printf("update-helper: restarted (pid=%d)", cmd.Process.Pid)
	}
}

// replaceFile copies src over dst, preserving dst's executable bits.
func replaceFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	mode := os.FileMode(0o755)
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode()
	}

	tmp := dst + ".new"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
