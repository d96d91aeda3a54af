package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-deposits/internal/config"
	deposit_db "ms-deposits/internal/deposits/db"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/tickets/audit"
	ticket_db "ms-deposits/internal/tickets/db"
)

func main() {
	backfill := flag.Bool("backfill", false, "insert missing claim rows for deposits that hold unclaimed numbers")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	log := logger.New(os.Stderr, nil)

	if err := godotenv.Load(); err != nil {
		log.Debug("CONFIG", ".env file not found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	deposits := &deposit_db.DB{Bun: bunDB}
	claims := &ticket_db.DB{Bun: bunDB}

	records, err := deposits.ListDeposits(ctx)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	rows, err := claims.ListClaims(ctx)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	report := audit.Run(records, rows)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	} else {
		printReport(report)
	}

	if *backfill && len(report.MissingClaims) > 0 {
		written := 0
		ids := make([]string, 0, len(report.MissingClaims))
		for id := range report.MissingClaims {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			n, err := claims.BackfillClaims(ctx, id, report.MissingClaims[id])
			if err != nil {
				log.Error("TICKETS", fmt.Sprintf("Backfill for deposit %s failed: %v", id, err))
				continue
			}
			written += n
		}
		log.Info("TICKETS", fmt.Sprintf("Backfilled %d of %d missing claim row(s)", written, report.MissingTotal()))
	}

	if !report.Clean() && !*backfill {
		os.Exit(1)
	}
}

func printReport(r audit.Report) {
	fmt.Printf("pool: %d used, %d remaining of %d\n", r.Pool.Used, r.Pool.Remaining, r.Pool.Size)
	if r.Clean() {
		fmt.Println("no violations")
		return
	}
	for n, ids := range r.Duplicates {
		fmt.Printf("duplicate: number %d held by %v\n", n, ids)
	}
	for id, numbers := range r.OutOfRange {
		fmt.Printf("out of range: deposit %s holds %v\n", id, numbers)
	}
	for id, numbers := range r.MissingClaims {
		fmt.Printf("missing claim: deposit %s holds %v\n", id, numbers)
	}
	for n, id := range r.MisattributedClaims {
		fmt.Printf("misattributed claim: number %d claimed for %s\n", n, id)
	}
}
