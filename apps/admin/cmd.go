package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wakahia/baraza/core/profile"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sqlx.DB
	profSvc *profile.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending database migrations")
	fmt.Println("  addprofile -name NAME -handle HANDLE [-role student|faculty|admin] - seed a profile")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addProfileCmd := flag.NewFlagSet("addprofile", flag.ExitOnError)
	addProfileName := addProfileCmd.String("name", "", "The person's display name.")
	addProfileHandle := addProfileCmd.String("handle", "", "A unique short name.")
	addProfileRole := addProfileCmd.String("role", profile.RoleStudent, "One of: student, faculty, admin.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "addprofile":
		if err := addProfileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addProfileName == "" || *addProfileHandle == "" {
			addProfileCmd.Usage()
			return errHelp
		}
		return cli.addProfile(*addProfileName, *addProfileHandle, *addProfileRole)
	default:
		cli.printUsage()
		return errHelp
	}
}
