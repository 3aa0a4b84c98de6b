// Command hashpw prints a bcrypt hash for a password, for seeding users by hand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"training-app/internal/auth"
)

func main() {
	cost := pflag.IntP("cost", "c", bcrypt.DefaultCost, "bcrypt cost")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [--cost N] [password]\n\nWith no argument the password is read from stdin.\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	password := pflag.Arg(0)
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "no password given")
			os.Exit(2)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password, *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
