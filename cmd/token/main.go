// Command token mints a signed session token for local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"socialchat/auth"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "", "E-mail carried by the token")
	name := flag.String("name", "", "Optional display name")
	duration := flag.Duration("duration", 24*time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	tokens, err := auth.NewTokenService(os.Getenv("AUTH_SECRET"), *duration)
	if err != nil {
		log.Fatal("AUTH_SECRET: ", err)
	}

	token, err := tokens.GenerateToken(*email, *name)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
