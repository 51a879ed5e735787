// Package main provides the harmony sign-in token tool.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/harmony/internal/infra/identity"
)

var (
	app    = kingpin.New("harmony-auth", "Sign-in token tool for harmony")
	secret = app.Flag("secret", "JWT signing secret").Envar("HARMONY_JWT_SECRET").Required().String()
	issuer = app.Flag("issuer", "JWT issuer").Envar("HARMONY_JWT_ISSUER").Default("harmony").String()

	issueCmd = app.Command("issue", "Issue a sign-in token for a user")
	issueUID = issueCmd.Arg("user-id", "User ID").Required().String()
	issueTTL = issueCmd.Flag("ttl", "Token lifetime").Default("720h").Duration()

	verifyCmd   = app.Command("verify", "Verify a sign-in token and print its user")
	verifyToken = verifyCmd.Arg("token", "Token to verify").Required().String()
)

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	provider, err := identity.NewJWT(*secret, *issuer)
	app.FatalIfError(err, "create identity provider")

	switch command {
	case issueCmd.FullCommand():
		token, err := provider.Issue(*issueUID, *issueTTL)
		app.FatalIfError(err, "issue token")

		fmt.Println("Sign-in token:")
		fmt.Println(token)
		fmt.Println("")
		fmt.Printf("Expires: %s\n", time.Now().Add(*issueTTL).Format(time.RFC3339))
		fmt.Println("")
		fmt.Println("Add this to your harmony.yaml:")
		fmt.Println("")
		fmt.Println("identity:")
		fmt.Println("  mode: jwt")
		fmt.Printf("  token: \"%s\"\n", token)
		fmt.Println("")
		fmt.Println("Or set as environment variable:")
		fmt.Printf("export HARMONY_TOKEN=\"%s\"\n", token)

	case verifyCmd.FullCommand():
		uid, err := provider.Verify(*verifyToken)
		app.FatalIfError(err, "verify token")
		fmt.Printf("user: %s\n", uid)
	}
}
