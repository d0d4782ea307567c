package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/uptcauth/internal/mailer"
)

func main() {

	cfg := mailer.LoadConfig()
	app := mailer.NewApp(cfg)

	if err := app.Run(context.Background()); err != nil {
		log.Printf("%v", err)
	}

}
