package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/HerbHall/netsense/internal/auth"
	"github.com/HerbHall/netsense/internal/config"
)

func runToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	subject := fs.String("subject", "operator", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	v := auth.NewVerifier(cfg.GetString("auth.jwt_secret"))
	if !v.Enabled() {
		return errors.New("auth.jwt_secret is not set")
	}

	tok, err := v.Issue(*subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, tok)
	return err
}
