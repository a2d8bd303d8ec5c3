package main

import (
	"flag"
	"log"

	"intake-chat/config"
	"intake-chat/pkg/database"
)

func main() {
	seed := flag.Bool("seed", false, "seed development data after migrating")
	flag.Parse()

	cfg := config.LoadConfig()
	database.Connect(cfg)
	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")

	if *seed {
		if _, err := database.Seed(nil); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}
}
