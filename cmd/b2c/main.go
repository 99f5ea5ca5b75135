// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Command b2c signs a user in to an Azure AD B2C tenant and calls a web API on their behalf.
//
// Usage:
//
//	b2c [-config config.json] [-v] signin|signout|editprofile|resetpassword|whoami|callapi
//
// The token cache is kept on disk, so a user signed in by one run is selected again by the next.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	msalcache "github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/msal-go-b2c/apps/api"
	"github.com/AzureAD/msal-go-b2c/apps/b2c"
	"github.com/AzureAD/msal-go-b2c/apps/cache"
	"github.com/AzureAD/msal-go-b2c/apps/config"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"github.com/AzureAD/msal-go-b2c/internal/msalclient"
	"github.com/kylelemons/godebug/pretty"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON or YAML configuration")
	verbose := flag.Bool("v", false, "log debug messages")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] signin|signout|editprofile|resetpassword|whoami|callapi\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, *configPath, *verbose, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, verbose bool, command string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log, err := logger.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if err != nil {
		return err
	}
	log = log.With("command", command)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	file, err := cache.NewFile(cfg.Cache.Path, log)
	if err != nil {
		return err
	}
	accessor, err := newCacheAccessor(file, cfg.Cache, log)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, accessor, log)
	if err != nil {
		return err
	}
	if _, err := client.SelectAccount(ctx); err != nil {
		return err
	}

	switch command {
	case "signin":
		if client.Session().AccountID != "" {
			fmt.Printf("already signed in as %s\n", client.Session().Username)
			return nil
		}
		accepted, err := client.SignIn(ctx)
		if err != nil {
			return err
		}
		if !accepted {
			return errors.New("sign-in did not complete")
		}
	case "signout":
		if err := client.SignOut(ctx); err != nil {
			return err
		}
		if err := file.Clear(ctx); err != nil {
			return fmt.Errorf("removing token cache: %w", err)
		}
		log.Log(ctx, logger.Info, "token cache removed", "path", file.Path())
	case "editprofile":
		return client.EditProfile(ctx)
	case "resetpassword":
		return client.ResetPassword(ctx)
	case "whoami":
		pretty.Print(client.Session())
	case "callapi":
		resp, err := client.PassTokenToAPI(ctx)
		if err != nil {
			return err
		}
		if resp == nil {
			return errors.New("web API call failed, see the log for details")
		}
		fmt.Printf("%d %s\n%s\n", resp.StatusCode, resp.RequestID, resp.Body)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func newClient(cfg config.Config, accessor msalcache.ExportReplace, log *logger.Logger) (*b2c.Client, error) {
	identity, err := msalclient.New(cfg.ClientID, cfg.Policies, msalclient.Options{
		RedirectURI: cfg.RedirectURI,
		Cache:       accessor,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	opts := b2c.Options{
		Policies:              cfg.Policies,
		LoginScopes:           cfg.LoginScopes(),
		APIScopes:             cfg.API.Scopes,
		PostLogoutRedirectURI: cfg.PostLogoutRedirectURI,
		Strategy:              cfg.Selection,
		OnSignIn:              func(username string) { fmt.Printf("Welcome, %s\n", username) },
		Logger:                log,
	}
	if cfg.API.Endpoint != "" {
		caller, err := api.NewCaller(cfg.API.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		opts.Caller = caller
		log.Log(context.Background(), logger.Debug, "web API configured", "endpoint", caller.Endpoint())
	}
	return b2c.New(identity, opts)
}

// newCacheAccessor returns file, sealed with the key at c.KeyPath when c.Encrypt is set.
func newCacheAccessor(file *cache.File, c config.Cache, log *logger.Logger) (msalcache.ExportReplace, error) {
	if !c.Encrypt {
		return file, nil
	}
	key, err := cache.LoadOrCreateKey(c.KeyPath)
	if err != nil {
		return nil, err
	}
	return cache.NewEncrypted(key, file, log)
}
