package main

import (
	"context"
	"embed"
	"errdash/apiclient"
	"errdash/cli"
	"errdash/config"
	"errdash/database"
	"errdash/diagnostics"
	"errdash/handlers"
	"errdash/service"
	"errdash/state"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFiles embed.FS

func main() {
	config.ParseFlags()

	logFile, err := setupLogging(config.Settings.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if config.Settings.CLIMode {
		mainCLI()
		return
	}
	runServer()
}

func runServer() {
	log.Println("errdash starting up...")

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	diag := diagnostics.NewLogger(config.Settings.MaxDiagnosticLogs)
	store := database.NewDiagnosticStore(database.DB)
	diag.AttachStore(store)

	client, closeTransport, err := newBackendClient(config.Settings.APIBaseURL)
	if err != nil {
		log.Fatalf("Failed to configure backend client: %v", err)
	}

	service.InitServices(client, diag, store, state.Global, config.Settings.SyncSuccessMarker)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go service.GlobalServices.RunSessionSweeper(sweepCtx,
		time.Duration(config.Settings.SessionSweepIntervalSec)*time.Second,
		time.Duration(config.Settings.SessionIdleMinutes)*time.Minute)

	if config.Settings.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()
	gin.DisableConsoleColor()

	router, err := newRouter(config.Settings)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	ln, err := listenFrom(config.Settings.Port, 100)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if port != config.Settings.Port {
		log.Printf("Port %d is busy, using %d", config.Settings.Port, port)
	}

	srv := &http.Server{Handler: router}
	go func() {
		log.Printf("Dashboard on http://127.0.0.1:%d (backend %s)", port, client.BaseURL())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	go func() {
		time.Sleep(1500 * time.Millisecond)
		openBrowser(fmt.Sprintf("http://127.0.0.1:%d/", port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received %s, shutting down...", sig)

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if closeTransport != nil {
		if err := closeTransport(); err != nil {
			log.Printf("Error closing backend transport: %v", err)
		}
	}
	if err := database.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server exited")
}

// newRouter wires middleware, the embedded assets and the dashboard routes.
func newRouter(settings *config.Config) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	acl, err := handlers.ParseAccessList(settings.AllowCIDRs, settings.DenyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("invalid access list: %w", err)
	}
	if acl != nil {
		r.Use(acl.Middleware())
	}

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Length", "X-Visible-Count", "X-Active-Status"},
	}))

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", http.FS(assets))

	handlers.RegisterRoutes(r)
	return r, nil
}

// newBackendClient builds the API client, dialing through a proxy or SSH
// jump host when configured.
func newBackendClient(baseURL string) (*apiclient.Client, func() error, error) {
	opts := []apiclient.Option{
		apiclient.WithTimeout(time.Duration(config.Settings.APITimeoutSeconds) * time.Second),
	}

	tOpts := apiclient.TransportOptions{
		ProxyURL:       config.Settings.APIProxyURL,
		SSHJump:        config.Settings.APISSHJump,
		SSHKeyPath:     config.Settings.APISSHKeyPath,
		SSHPassword:    config.Settings.APISSHPassword,
		ConnectTimeout: 10 * time.Second,
	}
	var closer func() error
	if tOpts.Enabled() {
		transport, closeFn, err := apiclient.NewTransport(tOpts)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, apiclient.WithTransport(transport))
		closer = closeFn
	}

	return apiclient.NewClient(baseURL, opts...), closer, nil
}

// listenFrom binds the first free port in [start, start+span).
func listenFrom(start, span int) (net.Listener, error) {
	var lastErr error
	for port := start; port < start+span; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in %d-%d: %w", start, start+span-1, lastErr)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser (%v), please open %s", err, url)
		return
	}
	// reap the child
	go func() { _ = cmd.Wait() }()
}

// mainCLI runs the readline client. No database: diagnostics stay in memory.
func mainCLI() {
	log.SetFlags(log.Ldate | log.Ltime)

	serverURL, err := cli.ResolveServer(config.Settings.CLIServer, config.Settings.APIBaseURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	client, closeTransport, err := newBackendClient(serverURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if closeTransport != nil {
		defer closeTransport()
	}

	fmt.Printf("errdash CLI - Connecting to %s\n", serverURL)

	cliInstance, err := cli.New(client, diagnostics.NewLogger(config.Settings.MaxDiagnosticLogs), config.Settings.SyncSuccessMarker)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTips:")
		fmt.Println("  1. Make sure the error tracking backend is running")
		fmt.Println("  2. Or specify a different server:")
		fmt.Println("     ./errdash --cli --server http://your-server:5000")
		os.Exit(1)
	}

	cliInstance.Start()
}
