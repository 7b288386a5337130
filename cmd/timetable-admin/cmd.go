package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/internal/timetable"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type documentStore interface {
	Initialize(ctx context.Context) (service.InitResult, error)
	Reset(ctx context.Context) (service.InitResult, error)
	UpdateAccount(ctx context.Context, email string, update models.AccountUpdate) (models.UserAccount, error)
}

type commandLine struct {
	store        documentStore
	out          io.Writer
	skeletonPath string
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  flatten [-skeleton PATH]        - print the flattened class list as JSON")
	fmt.Fprintln(cli.out, "  init                            - reconcile the stored document with the skeleton")
	fmt.Fprintln(cli.out, "  reset-store -confirm            - discard the stored document and re-seed it")
	fmt.Fprintln(cli.out, "  reset-password -email EMAIL     - set an account's password (prompted)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	flattenCmd := flag.NewFlagSet("flatten", flag.ContinueOnError)
	flattenCmd.SetOutput(cli.out)
	flattenSkeleton := flattenCmd.String("skeleton", cli.skeletonPath, "Skeleton YAML file. Defaults to the embedded timetable.")

	resetStoreCmd := flag.NewFlagSet("reset-store", flag.ContinueOnError)
	resetStoreCmd.SetOutput(cli.out)
	resetStoreConfirm := resetStoreCmd.Bool("confirm", false, "Required. Every account, class status and notice is lost.")

	resetPasswordCmd := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account email. The password will be prompted next.")

	switch args[1] {
	case "flatten":
		if err := flattenCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.flatten(*flattenSkeleton)

	case "init":
		result, err := cli.store.Initialize(ctx)
		if err != nil {
			return err
		}
		return cli.printJSON(result)

	case "reset-store":
		if err := resetStoreCmd.Parse(args[2:]); err != nil {
			return err
		}
		if !*resetStoreConfirm {
			resetStoreCmd.Usage()
			return errHelp
		}
		result, err := cli.store.Reset(ctx)
		if err != nil {
			return err
		}
		return cli.printJSON(result)

	case "reset-password":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flatten(path string) error {
	skeleton, err := seed.LoadSkeleton(path)
	if err != nil {
		return err
	}
	return cli.printJSON(timetable.Flatten(skeleton))
}

func (cli *commandLine) resetPassword(ctx context.Context, email, password string) error {
	if _, err := cli.store.UpdateAccount(ctx, email, models.PasswordUpdate(password)); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password updated for %s\n", email)
	return nil
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
