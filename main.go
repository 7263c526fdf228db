package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/jesseduffield/lazygpg/pkg/app"
	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/jesseduffield/yaml"
)

var (
	commit      string
	version     = "unversioned"
	date        string
	buildSource = "unknown"

	configFlag    = false
	debuggingFlag = false

	request    app.Request
	inputPath  string
	recipients []string
)

func newSubcommand(name string, description string) *flaggy.Subcommand {
	subcommand := flaggy.NewSubcommand(name)
	subcommand.Description = description
	subcommand.AddPositionalValue(&inputPath, "file", 1, false, "Read the message from this file instead of stdin")
	flaggy.AttachSubcommand(subcommand, 1)
	return subcommand
}

func main() {
	info := fmt.Sprintf(
		"%s\nDate: %s\nBuildSource: %s\nCommit: %s\nOS: %s\nArch: %s",
		version,
		date,
		buildSource,
		commit,
		runtime.GOOS,
		runtime.GOARCH,
	)

	flaggy.SetName("lazygpg")
	flaggy.SetDescription("The lazier way to drive gpg")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/jesseduffield/lazygpg"

	flaggy.Bool(&configFlag, "c", "config", "Print the current default config")
	flaggy.Bool(&debuggingFlag, "d", "debug", "Log to development.log in the config directory")
	flaggy.SetVersion(info)

	sign := newSubcommand("sign", "Make a detached signature")
	sign.Bool(&request.Armor, "a", "armor", "ASCII armor the signature")
	sign.Bool(&request.Text, "t", "text", "Sign the message as text, with canonical CRLF line endings")
	sign.String(&request.UserID, "u", "userid", "Sign with this key")
	sign.String(&request.Digest, "", "digest", "Digest algorithm: MD2, MD5, SHA1 or RIPEMD160")

	verify := newSubcommand("verify", "Verify a signed message")
	verify.Bool(&request.Text, "t", "text", "Verify the message as text, with canonical CRLF line endings")
	verify.String(&request.SigFile, "", "sig", "Detached signature file")
	verify.Bool(&request.Offline, "", "offline", "Don't fetch missing keys from a keyserver")

	encrypt := newSubcommand("encrypt", "Encrypt a message")
	encrypt.Bool(&request.Armor, "a", "armor", "ASCII armor the ciphertext")
	encrypt.String(&request.UserID, "u", "userid", "Also encrypt to this key")
	encrypt.StringSlice(&recipients, "r", "recipient", "Encrypt to this recipient. Can be given more than once")
	encrypt.Bool(&request.AlwaysTrust, "", "always-trust", "Skip key validation")

	newSubcommand("decrypt", "Decrypt a message")

	importKeys := newSubcommand("import", "Import keys")
	importKeys.Bool(&request.Describe, "", "describe", "List the keys before importing them")

	export := flaggy.NewSubcommand("export")
	export.Description = "Export public keys"
	export.Bool(&request.Armor, "a", "armor", "ASCII armor the keys")
	export.StringSlice(&recipients, "r", "recipient", "Export this key. Can be given more than once; none means all keys")
	export.Bool(&request.Describe, "", "describe", "List the exported keys on stderr")
	flaggy.AttachSubcommand(export, 1)

	flaggy.Parse()

	if configFlag {
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		err := encoder.Encode(config.GetDefaultConfig())
		if err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", buf.String())
		os.Exit(0)
	}

	for _, subcommand := range flaggy.DefaultParser.Subcommands {
		if subcommand.Used {
			request.Subcommand = subcommand.Name
		}
	}
	request.Recipients = recipients

	appConfig, err := config.NewAppConfig("lazygpg", version, commit, date, buildSource, debuggingFlag)
	if err != nil {
		log.Fatal(err.Error())
	}

	os.Exit(run(appConfig))
}

func run(appConfig *config.AppConfig) int {
	defer secret.Purge()

	app, err := app.NewApp(appConfig)
	if err != nil {
		return reportError(app, err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var in io.Reader = os.Stdin
	if inputPath != "" {
		file, err := os.Open(inputPath)
		if err != nil {
			return reportError(app, err)
		}
		defer file.Close()
		in = file
	}

	if err := app.Run(ctx, request, in, os.Stdout, os.Stderr); err != nil {
		return reportError(app, err)
	}
	return 0
}

func reportError(app *app.App, err error) int {
	if app.Tr != nil {
		if errMessage, known := app.KnownError(err); known {
			log.Println(errMessage)
			return 1
		}
	}

	newErr := errors.Wrap(err, 0)
	stackTrace := newErr.ErrorStack()
	if app.Log != nil {
		app.Log.Error(stackTrace)
	}

	errorOccurred := "An error occurred!"
	if app.Tr != nil {
		errorOccurred = app.Tr.ErrorOccurred
	}
	log.Println(fmt.Sprintf("%s\n\n%s", errorOccurred, stackTrace))
	return 1
}
