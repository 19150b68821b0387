// Command admintoken mints operator tokens for the admin API and the live event feed.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/auth"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var operator string
	var ttl time.Duration
	var secret string

	flagSet := pflag.NewFlagSet("admintoken", pflag.ContinueOnError)
	flagSet.StringVarP(&operator, "operator", "o", "", "operator name recorded as the token subject (required)")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flagSet.StringVar(&secret, "secret", "", "signing secret (default: JWT_SECRET from the environment)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if operator == "" {
		return errors.New("--operator is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", ttl)
	}

	if secret == "" {
		_ = godotenv.Load()
		secret = config.Load().JWTSecret
	}

	token, err := auth.NewTokenService(secret).IssueToken(operator, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
