package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Spok95/school-office/internal/db"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}
	flag.Usage = func() {
		log.Printf("usage: %s [up|down|status]", os.Args[0])
	}
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	ctx := context.Background()
	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Ошибка подключения к БД: %v", err)
	}
	defer func() { _ = database.Close() }()

	switch cmd {
	case "up":
		err = db.Migrate(ctx, database)
	case "down":
		err = db.MigrateDown(ctx, database)
	case "status":
		err = db.MigrationStatus(ctx, database)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}
