package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/database"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/server"
)

func main() {
	app := &cli.App{
		Name:  "replystack",
		Usage: "email auto-reply and bulk campaign backend",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(c *cli.Context) error {
					cfg, db := mustInit()
					if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
						log.Fatalf("Database migration failed: %v", err)
					}
					log.Println("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the application server",
				Action: func(c *cli.Context) error {
					cfg, db := mustInit()

					log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
					log.Println("ReplyStack starting up...")

					srv, err := server.NewServer(cfg, db)
					if err != nil {
						log.Fatalf("Server setup failed: %v", err)
					}
					return srv.Run()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mustInit() (*config.Config, *gorm.DB) {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	return cfg, db
}
