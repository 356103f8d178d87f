// Command tierctl manages user subscription tiers.
//
//	tierctl upgrade   --user 12 --tier pro [--days 30]
//	tierctl downgrade --user 12
//	tierctl renew     --user 12 [--days 30]
//	tierctl show      --user 12
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/config"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/database"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/users"
)

// tierService is the part of users.Service the command drives.
type tierService interface {
	Show(ctx context.Context, userID int64) (*users.User, error)
	Upgrade(ctx context.Context, userID int64, t tier.Tier, days int) (*users.User, error)
	Downgrade(ctx context.Context, userID int64) (*users.User, error)
	Renew(ctx context.Context, userID int64, days int) (*users.User, error)
}

var errUsage = errors.New("usage: tierctl <upgrade|downgrade|renew|show> --user ID [--tier T] [--days N]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := users.NewService(users.NewRepository(pool))
	if err := run(ctx, os.Args[1:], svc, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tierctl:", err)
		pool.Close()
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, svc tierService, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.Int64("user", 0, "user id")
	tierName := fs.String("tier", "", "target tier (free, basic, pro, enterprise)")
	days := fs.Int("days", users.DefaultSubscriptionDays, "subscription length in days")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if *userID <= 0 {
		return fmt.Errorf("%s: --user is required", cmd)
	}

	var (
		u   *users.User
		err error
	)
	switch cmd {
	case "upgrade":
		if *tierName == "" {
			return errors.New("upgrade: --tier is required")
		}
		u, err = svc.Upgrade(ctx, *userID, tier.Tier(*tierName), *days)
	case "downgrade":
		u, err = svc.Downgrade(ctx, *userID)
	case "renew":
		u, err = svc.Renew(ctx, *userID, *days)
	case "show":
		u, err = svc.Show(ctx, *userID)
	default:
		return errUsage
	}
	if err != nil {
		return fmt.Errorf("%s user %d: %w", cmd, *userID, err)
	}

	printUser(out, u)
	return nil
}

func printUser(out io.Writer, u *users.User) {
	limits := tier.Lookup(u.Tier)
	fmt.Fprintf(out, "id:          %d\n", u.ID)
	fmt.Fprintf(out, "username:    %s\n", u.Username)
	fmt.Fprintf(out, "email:       %s\n", u.Email)
	fmt.Fprintf(out, "tier:        %s (%s)\n", u.Tier, limits.Description)
	fmt.Fprintf(out, "subscribed:  %t\n", u.IsSubscribed)
	if u.SubscriptionExpiry != nil {
		fmt.Fprintf(out, "expires:     %s\n", u.SubscriptionExpiry.Format(time.DateOnly))
	} else {
		fmt.Fprintln(out, "expires:     -")
	}
	fmt.Fprintf(out, "limits:      %s/hour, %s/day, %d max tokens\n",
		formatLimit(limits.Hourly), formatLimit(limits.Daily), limits.MaxTokens)
}

func formatLimit(n int) string {
	if n == tier.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}
