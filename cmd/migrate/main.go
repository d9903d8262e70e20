package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrate applies schema migrations. Commands: up, down, version,
// force <version>, step <n>.
func main() {
	dir := flag.String("path", "migrations", "directory holding migration files")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "up":
		report(m.Up(), "database is up to date")
	case "down":
		report(m.Down(), "database rolled back")
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
	case "force":
		v := intArg(args, 1, "force requires a version argument")
		if err := m.Force(v); err != nil {
			log.Fatalf("force: %v", err)
		}
		fmt.Printf("forced version to %d\n", v)
	case "step":
		n := intArg(args, 1, "step requires a step count (negative rolls back)")
		report(m.Steps(n), fmt.Sprintf("stepped %d", n))
	default:
		usage()
		os.Exit(2)
	}
}

func report(err error, ok string) {
	switch {
	case err == nil:
		fmt.Println(ok)
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("no change")
	default:
		log.Fatalf("migration: %v", err)
	}
}

func intArg(args []string, i int, msg string) int {
	if len(args) <= i {
		log.Fatal(msg)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		log.Fatalf("not a number: %q", args[i])
	}
	return n
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-path dir] <up|down|version|force <v>|step <n>>")
	flag.PrintDefaults()
}
