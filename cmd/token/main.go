// Command token mints a bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/airport-shuttle/internal/auth"
)

func main() {
	var (
		user   = flag.String("user", "", "user id (token subject)")
		email  = flag.String("email", "", "user email")
		secret = flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret, defaults to $JWT_SECRET")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()
	if *user == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <id> [-email <email>] [-secret <secret>] [-ttl 24h]")
		os.Exit(2)
	}
	tok, err := auth.NewManager(*secret, *ttl).GenerateToken(*user, *email)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
