package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/uloaix/aicode/internal/api"
	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/models"
	"github.com/uloaix/aicode/internal/serverdb"
)

func runAdmin(args []string) {
	if len(args) == 0 {
		printAdminUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "grant":
		err = runAdminSetRole(args[1:], models.RoleAdmin)
	case "revoke":
		err = runAdminSetRole(args[1:], models.RoleUser)
	case "create-user":
		err = runAdminCreateUser(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown admin command: %s\n", args[0])
		printAdminUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, `Usage: aicode-server admin <command> [flags]

Commands:
  grant        Grant the admin role to a user
  revoke       Revoke the admin role from a user
  create-user  Create a user with a password`)
}

const dbFlagUsage = "path to the database (default: from AICODE_DB_PATH or ./data/aicode.db)"

func openDB(dbPath string) (*serverdb.ServerDB, error) {
	cfg := api.LoadConfig()
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	return serverdb.Open(cfg.DBDriver, dbPath)
}

func runAdminSetRole(args []string, role models.UserRole) error {
	fs := flag.NewFlagSet("admin "+string(role), flag.ExitOnError)
	account := fs.String("account", "", "user account")
	dbPath := fs.String("db", "", dbFlagUsage)
	fs.Parse(args)

	acct := strings.TrimSpace(*account)
	if acct == "" {
		fs.Usage()
		return fmt.Errorf("--account is required")
	}

	store, err := openDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	user, err := store.GetUserByAccount(acct)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", acct)
	}

	if role != models.RoleAdmin && user.IsAdmin() {
		count, err := store.CountAdmins()
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("cannot revoke last admin")
		}
	}

	if err := store.UpdateUser(user.ID, serverdb.UserUpdate{UserRole: &role}); err != nil {
		return err
	}
	fmt.Printf("set role of %s to %s\n", acct, role)
	return nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("admin create-user", flag.ExitOnError)
	account := fs.String("account", "", "user account (at least 4 characters)")
	password := fs.String("password", "", "password (at least 8 characters)")
	name := fs.String("name", "", "display name (default: the account)")
	admin := fs.Bool("admin", false, "create with the admin role")
	dbPath := fs.String("db", "", dbFlagUsage)
	fs.Parse(args)

	acct := strings.TrimSpace(*account)
	if len([]rune(acct)) < 4 || len([]rune(*password)) < 8 {
		fs.Usage()
		return fmt.Errorf("--account (>= 4 chars) and --password (>= 8 chars) are required")
	}

	hash, err := crypto.HashPassword(*password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	store, err := openDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	role := models.RoleUser
	if *admin {
		role = models.RoleAdmin
	}
	displayName := *name
	if displayName == "" {
		displayName = acct
	}
	u, err := store.CreateUser(acct, hash, displayName, role)
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (id %d, role %s)\n", u.UserAccount, u.ID, u.UserRole)
	return nil
}
