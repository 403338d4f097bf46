package main

import (
	"log"

	"github.com/arborsync/arbor/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ arbor failed to start: %v", err)
	}
}
