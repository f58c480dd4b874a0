package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hal9000y/gapi-gateway/internal/auth"
	"github.com/hal9000y/gapi-gateway/internal/config"
	"github.com/hal9000y/gapi-gateway/internal/gateway"
	"github.com/hal9000y/gapi-gateway/internal/gservice"
	"github.com/hal9000y/gapi-gateway/internal/httpapi"
	"github.com/hal9000y/gapi-gateway/internal/logging"
	"github.com/hal9000y/gapi-gateway/internal/metrics"
	"github.com/hal9000y/gapi-gateway/internal/tool"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST and MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("config.Load failed: %w", err)
			}

			browser, _ := cmd.Flags().GetBool("open-browser")

			return runServe(cfg, browser)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().Bool("open-browser", true, "Open the OAuth consent page when no token is stored")

	return cmd
}

func runServe(cfg *config.Config, browser bool) error {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("logging.New failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(gin.ReleaseMode)

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("net.Listen failed: %w", err)
	}

	redirectURL := cfg.Auth.RedirectURL
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("http://%s/oauth", ln.Addr().String())
	}
	oauthCfg := auth.NewConfig(cfg.Auth.ClientID, cfg.Auth.ClientSecret, redirectURL)

	store, err := newStore(cfg.Auth)
	if err != nil {
		return fmt.Errorf("newStore failed: %w", err)
	}

	tok, err := auth.NewToken(oauthCfg, store, log.Named("auth"))
	if err != nil {
		return fmt.Errorf("auth.NewToken failed: %w", err)
	}
	if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
		log.Warn("OAuth client credentials missing; token refresh and authorization will fail",
			zap.String("env", config.EnvClientID+", "+config.EnvClientSecret))
	}

	defer func() {
		log.Info("persisting token if exists")
		if err := tok.Persist(); err != nil {
			log.Error("tok.Persist failed", zap.Error(err))
		}
	}()

	m := metrics.New()

	mail := gateway.NewMail(gservice.NewGmail(tok, m), gateway.MailOptions{
		MaxResults:       cfg.Gmail.MaxResults,
		FetchConcurrency: cfg.Gmail.FetchConcurrency,
		SubjectSource:    cfg.Reply.SubjectSource,
		Timeout:          cfg.HTTP.UpstreamTimeout,
	}, log.Named("mail"))

	cal := gateway.NewCalendar(gservice.NewCalendar(tok, m), gateway.CalendarOptions{
		CalendarID:      cfg.Calendar.ID,
		DefaultTimeZone: cfg.Calendar.DefaultTimeZone,
		MaxResults:      cfg.Calendar.MaxResults,
		Timeout:         cfg.HTTP.UpstreamTimeout,
	}, log.Named("calendar"))

	router := httpapi.NewRouter(mail, cal, m, log.Named("http"), httpapi.Options{
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/oauth", gin.WrapH(auth.NewHTTPHandler(tok, log.Named("oauth"))))

	tools := tool.NewServer(mail, cal, version)
	if cfg.MCP.Enabled {
		mcpHTTP := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return tools }, nil)
		router.Any("/mcp", gin.WrapH(mcpHTTP))
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrNoCredential) {
		if browser && !cfg.MCP.Stdio {
			openBrowser(log, redirectURL)
		} else {
			log.Info("no token stored; authorize by visiting the oauth link", zap.String("url", redirectURL+"?redirect=1"))
		}
	}

	stopHTTP, errHTTPCh := serveHTTP(srv, ln, cfg.HTTP.ShutdownTimeout, log)
	defer stopHTTP()

	var errStdioCh <-chan error
	if cfg.MCP.Stdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(tools, log)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case err := <-errStdioCh:
		if err != nil {
			return fmt.Errorf("stdio transport: %w", err)
		}
		log.Info("stdio transport closed")
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	return nil
}

func newStore(cfg config.AuthConfig) (auth.Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		return auth.NewFileStore(cfg.TokenFile), nil
	case config.StoreKeyring:
		ring, err := auth.OpenKeyring(cfg.KeyringDir, cfg.KeyringPass)
		if err != nil {
			return nil, err
		}
		return auth.NewKeyringStore(ring), nil
	}

	return nil, fmt.Errorf("unknown token store %q", cfg.Store)
}

func serveStdio(srv *mcp.Server, log *zap.Logger) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Info("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Info("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener, shutdownTimeout time.Duration, log *zap.Logger) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.Info("starting http server", zap.String("addr", ln.Addr().String()))

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errHTTPCh <- fmt.Errorf("srv.Serve failed: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("srv.Shutdown failed", zap.Error(err))
		}

		<-errHTTPCh
		log.Info("http server stopped")
	}, errHTTPCh
}

func openBrowser(log *zap.Logger, url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Warn("could not open browser automatically; open the link manually", zap.String("url", url), zap.Error(err))
	}
}
