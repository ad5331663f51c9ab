// Command migrate applies, inspects and rolls back the embedded SQL
// migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"sociallink/internal/config"
	"sociallink/internal/database"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
}

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Abort if the operation takes longer")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-timeout d] <up|auto|status|down <version>>")
		flag.PrintDefaults()
	}
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	cmd, ok := commands[name]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.Options{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := cmd(ctx, db, cfg, flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if db.Dialector.Name() != "postgres" {
		return fmt.Errorf("sql migrations target postgres; use \"auto\" for %s", db.Dialector.Name())
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	log.Println("sql migrations applied")
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	log.Println("automigrations applied")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("mode=%s env=%s run_sql=%t run_auto=%t\n\n", st.Mode, st.Environment, st.WillRunSQL, st.WillRunAutoMigrate)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE\tAPPLIED AT")
	for _, a := range st.Applied {
		fmt.Fprintf(w, "%06d\t%s\tapplied\t%s\n", a.Version, a.Name, a.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range st.PendingMigrations {
		fmt.Fprintf(w, "%06d\t%s\tpending\t-\n", m.Version, m.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if st.Drift != nil {
		return st.Drift
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	log.Printf("rolled back migration %06d", version)
	return nil
}
