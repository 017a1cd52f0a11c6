// Command validate validates one token against an issuer and prints the
// result:
//
//	validate [--timeout 10s] [--scope profile] [--json] ISSUER TOKEN
//	validate --version
//
// TLS verification of the issuer is disabled. The exit code is non-zero
// when any step reports a non-zero status.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/kcoidc/bridge"
	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/observability"
	"github.com/kbukum/kcoidc/version"
)

type options struct {
	issuer  string
	token   string
	scope   string
	timeout time.Duration
	json    bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("validate", pflag.ExitOnError)
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "how long to wait for the issuer")
	flags.StringVar(&opts.scope, "scope", "", "scope the token must grant")
	flags.BoolVar(&opts.json, "json", false, "print failures as JSON")
	showVersion := flags.Bool("version", false, "print the version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: validate [flags] ISSUER TOKEN\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])
	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	opts.issuer, opts.token = flags.Arg(0), flags.Arg(1)

	if err := run(os.Stdout, opts); err != nil {
		os.Exit(1)
	}
}

// run performs every step against a fresh Context built from the loaded
// settings and extra. A failing Uninitialize fails the run even after a
// successful validation.
func run(out io.Writer, opts options, extra ...bridge.Option) (err error) {
	settings, err := bridge.LoadSettings()
	if err != nil {
		settings = bridge.DefaultSettings()
	}
	settings.InsecureSkipVerify = true

	providers, err := observability.Setup(context.Background(), settings.Metrics)
	if err != nil {
		fmt.Fprintf(out, "> Warn : metrics export disabled: %v\n", err)
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	c, err := bridge.New(append([]bridge.Option{bridge.WithSettings(settings)}, extra...)...)
	if err != nil {
		return report(out, opts, "Create       ", err)
	}
	if err := c.Initialize(opts.issuer); err != nil {
		return report(out, opts, "Initialize   ", err)
	}
	defer func() {
		if uerr := c.Uninitialize(); uerr != nil {
			uerr = report(out, opts, "Uninitialize ", uerr)
			if err == nil {
				err = uerr
			}
		}
	}()
	if err := c.WaitUntilReady(opts.timeout); err != nil {
		return report(out, opts, "Ready        ", err)
	}

	begin := time.Now()
	var res bridge.ValidationResult
	if opts.scope != "" {
		res = c.ValidateTokenRequireScope(opts.token, opts.scope)
	} else {
		res = c.ValidateToken(opts.token)
	}
	spent := time.Since(begin)

	resultErr := report(out, opts, "Result code  ", res.Err())
	tok, ok := res.Token()
	if !ok {
		fmt.Fprintf(out, "> Token subject : %s -> %s\n", "", "invalid")
		fmt.Fprintf(out, "> Time spent    : %fs\n", spent.Seconds())
		return resultErr
	}
	fmt.Fprintf(out, "> Token subject : %s -> %s\n", tok.Subject, "valid")
	fmt.Fprintf(out, "> Time spent    : %fs\n", spent.Seconds())
	fmt.Fprintf(out, "> Standard      : %s\n", tok.StandardClaims)
	fmt.Fprintf(out, "> Extra         : %s\n", tok.ExtraClaims)
	fmt.Fprintf(out, "> Token type    : %d (%s)\n", tok.TokenType, tok.TokenType)

	if tok.TokenType == bridge.TokenTypeAccess {
		info := c.FetchUserinfoWithAccessToken(opts.token)
		if err := report(out, opts, "Userinfo     ", info.Err()); err != nil {
			return err
		}
		payload, _ := info.Payload()
		fmt.Fprintf(out, "%s\n", payload)
	}
	return nil
}

// report prints the status of a step and returns err.
func report(out io.Writer, opts options, step string, err error) error {
	code := apperrors.CodeOf(err)
	if code == apperrors.ErrCodeNone {
		fmt.Fprintf(out, "> %s : 0x0\n", step)
		return nil
	}
	fmt.Fprintf(out, "> %s : 0x%x (%s)\n", step, uint64(code), code.Text())
	if opts.json {
		b, _ := json.Marshal(apperrors.ResponseOf(err))
		fmt.Fprintf(out, "%s\n", b)
	}
	return err
}
