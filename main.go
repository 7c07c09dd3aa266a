package main

import (
	"bigfootds/auth-api/app"
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/db"
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	c, err := config.Setup()
	if err != nil {
		panic(err)
	}

	if err := app.MakeLogger(c.LogLevel); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.New(c.DB)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}

	d, err := internal.NewDeps(c, conn, nil, service.NewSMTPMailer(c.Mail, c.Host))
	if err != nil {
		zap.L().Fatal("Failed to set up dependencies", zap.Error(err))
	}

	cleanupDone := service.TokenCleanup(ctx, c.Tokens.CleanupInterval, d.Tokens)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Host.Port),
		Handler:           app.NewRouter(ctx, d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting", zap.Int("port", c.Host.Port), zap.Bool("ssl", c.Host.SSLEnabled))

		var err error
		if c.Host.SSLEnabled {
			err = srv.ListenAndServeTLS(c.Host.CertificatePath, c.Host.CertificateKeyPath)
		} else {
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed to shut down server gracefully", zap.Error(err))
	}

	<-cleanupDone

	if err := db.Close(conn); err != nil {
		zap.L().Error("Failed to close database", zap.Error(err))
	}
}
