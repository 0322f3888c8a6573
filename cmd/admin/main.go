// AngelaMos | 2026
// main.go

// Command admin manages platform operator accounts.
//
// Usage:
//
//	SUPER_ADMIN_PASSWORD=... admin [-dsn url] create-super-admin -email ops@example.com -name "Ops"
//	admin [-dsn url] list-super-admins
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
)

const usage = "usage: admin [-dsn url] <create-super-admin|list-super-admins> [flags]"

func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection url")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(*dsn, flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("admin command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(dsn, command string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if dsn == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := core.NewDatabase(ctx, config.DatabaseConfig{URL: dsn, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return dispatch(ctx, principal.NewRepository(db.DB), os.Stdout, command, args)
}

func dispatch(ctx context.Context, admins principal.Repository, out io.Writer, command string, args []string) error {
	switch command {
	case "create-super-admin":
		return createSuperAdmin(ctx, admins, out, args)
	case "list-super-admins":
		return listSuperAdmins(ctx, admins, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func createSuperAdmin(ctx context.Context, admins principal.Repository, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create-super-admin", flag.ContinueOnError)
	email := fs.String("email", "", "operator email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := principal.CreateSuperAdmin(ctx, admins, principal.NewSuperAdmin{
		Email:    *email,
		Password: os.Getenv("SUPER_ADMIN_PASSWORD"),
		Name:     *name,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return fmt.Errorf("super admin %s already exists", *email)
		}
		return err
	}

	_, err = fmt.Fprintf(out, "created super admin %s (%s)\n", a.Email, a.ID)
	return err
}

func listSuperAdmins(ctx context.Context, admins principal.Repository, out io.Writer) error {
	list, err := admins.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tACTIVE\tLOCKED")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", a.ID, a.Email, a.Name, a.IsActive, a.LockUntil != nil)
	}
	return w.Flush()
}
