package main

import "github.com/pmarasse/cas-persondir-ldap/internal/cli"

func main() {
	cli.Execute()
}
