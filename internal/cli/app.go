package cli

import (
	"errors"
	"io"
	"os"

	"github.com/Makepad-fr/gifboard/internal/ui"
	"github.com/urfave/cli/v2"
)

var version = "dev"

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for session, logs and base account keypair",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "cluster name: devnet, testnet, mainnet-beta or localnet",
	}
	rpcURLFlag = &cli.StringFlag{
		Name:  "rpc-url",
		Usage: "explicit RPC endpoint, overrides --network",
	}
	programIDFlag = &cli.StringFlag{
		Name:  "program-id",
		Usage: "address of the gif board program",
	}
	walletFlag = &cli.StringFlag{
		Name:  "wallet",
		Usage: "wallet keypair file",
	}
	baseAccountFlag = &cli.StringFlag{
		Name:  "base-account",
		Usage: "address of the base account holding the gif list",
	}
	baseAccountKeypairFlag = &cli.StringFlag{
		Name:  "base-account-keypair",
		Usage: "base account keypair file, needed only for init",
	}
	logLevelFlag = &cli.IntFlag{
		Name:  "log-level",
		Usage: "logrus level, 0 (panic) to 6 (trace)",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "deadline for each remote call",
	}
	verifyIDLFlag = &cli.BoolFlag{
		Name:  "verify-idl",
		Usage: "check the program interface before sending transactions",
	}
	themeFlag = &cli.StringFlag{
		Name:  "theme",
		Usage: "output theme: classic, neon or mono",
		Value: "classic",
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable colored output",
	}
)

// NewApp builds the command tree. Output goes to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "gifboard"
	app.Usage = "submit and browse gif links stored on Solana"
	app.Version = version
	app.Writer = out
	app.ErrWriter = errOut
	app.Flags = []cli.Flag{
		datadirFlag, networkFlag, rpcURLFlag, programIDFlag, walletFlag,
		baseAccountFlag, baseAccountKeypairFlag, logLevelFlag, timeoutFlag,
		verifyIDLFlag, themeFlag, noColorFlag,
	}
	app.Commands = []*cli.Command{
		&uiCommand,
		&connectCommand,
		&disconnectCommand,
		&statusCommand,
		&initCommand,
		&addCommand,
		&lsCommand,
		&idlCommand,
		&baseAccountCommand,
	}
	app.Action = runUI
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string) int {
	ui.SetOutput(os.Stdout, os.Stderr)
	return run(NewApp(os.Stdout, os.Stderr), args)
}

func run(app *cli.App, args []string) int {
	if err := app.Run(args); err != nil {
		ui.Fail(err.Error())
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			return ec.ExitCode()
		}
		return 1
	}
	return 0
}

func usage(msg string) error {
	return cli.Exit("usage: "+msg, 2)
}
