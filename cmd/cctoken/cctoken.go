package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"

	"github.com/emissary-ingress/tokenclient/pkg/logutil"
	"github.com/emissary-ingress/tokenclient/pkg/registration"
	"github.com/emissary-ingress/tokenclient/pkg/rfc6749client"
)

const (
	outputJSON   = "json"
	outputHeader = "header"
)

type config struct {
	Registrations string
	LogLevel      string
	Retries       int
	Timeout       time.Duration
	Parallelism   int
	Output        string

	// initialInterval is the first retry delay; tests shorten it.
	initialInterval time.Duration
}

func (cfg config) validate() error {
	switch cfg.Output {
	case outputJSON, outputHeader:
	default:
		return errors.Errorf("--output: must be %q or %q, got %q", outputJSON, outputHeader, cfg.Output)
	}
	if cfg.Parallelism < 1 {
		return errors.Errorf("--parallelism: must be at least 1, got %d", cfg.Parallelism)
	}
	if cfg.Retries < 0 {
		return errors.Errorf("--retries: must not be negative, got %d", cfg.Retries)
	}
	return nil
}

func Main(ctx context.Context, version string, stdout, stderr io.Writer, args ...string) error {
	cmd := newCommand(version, stdout, stderr, 500*time.Millisecond)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newCommand(version string, stdout, stderr io.Writer, initialInterval time.Duration) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CCTOKEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "cctoken [flags] [REGISTRATION...]",
		Short: "Obtain OAuth 2.0 access tokens using the Client Credentials Grant",
		Long: "Obtain OAuth 2.0 access tokens using the Client Credentials Grant, for each named\n" +
			"registration (or every registration in the file, if none are named).\n\n" +
			"Every flag may also be set with a CCTOKEN_<FLAG> environment variable.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addFlags(cmd.Flags())
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := config{
			Registrations:   v.GetString("registrations"),
			LogLevel:        v.GetString("log-level"),
			Retries:         v.GetInt("retries"),
			Timeout:         v.GetDuration("timeout"),
			Parallelism:     v.GetInt("parallelism"),
			Output:          v.GetString("output"),
			initialInterval: initialInterval,
		}
		if err := cfg.validate(); err != nil {
			return err
		}

		logger, err := logutil.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
		if err != nil {
			return errors.Wrap(err, "--log-level")
		}
		ctx := logutil.WithLogger(cmd.Context(), logger)

		registry, err := registration.Load(cfg.Registrations)
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = registry.Names()
		}

		return run(ctx, cfg, registry, names, cmd.OutOrStdout())
	}

	return cmd
}

func addFlags(flags *pflag.FlagSet) {
	flags.String("registrations", "registrations.yaml", "YAML file of client registrations")
	flags.String("log-level", "info", "log level (panic, fatal, error, warn, info, debug, trace)")
	flags.Int("retries", 0, "number of times to retry a request that got no response")
	flags.Duration("timeout", 30*time.Second, "timeout for each HTTP request")
	flags.Int("parallelism", 4, "maximum number of token requests in flight")
	flags.StringP("output", "o", outputJSON, "output format: json or header")
}

type outcome struct {
	name     string
	response *rfc6749client.TokenResponse
	err      error
}

func run(ctx context.Context, cfg config, registry *registration.Registry, names []string, stdout io.Writer) error {
	client, err := rfc6749client.NewClientCredentialsTokenResponseClient(
		rfc6749client.WithTransport(rfc6749client.NewHTTPTransport(&http.Client{Timeout: cfg.Timeout})))
	if err != nil {
		return err
	}

	outcomes := make([]outcome, len(names))
	sem := semaphore.NewWeighted(int64(cfg.Parallelism))
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		EnableSignalHandling: true,
	})
	var mu sync.Mutex
	for i, name := range names {
		i, name := i, name
		grp.Go(name, func(ctx context.Context) error {
			res, err := fetch(ctx, cfg, client, registry, name, sem)
			mu.Lock()
			outcomes[i] = outcome{name: name, response: res, err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	var errs derror.MultiError
	for _, o := range outcomes {
		if o.err != nil {
			dlog.Errorf(ctx, "registration %q: %v", o.name, o.err)
			errs = append(errs, errors.Wrapf(o.err, "registration %q", o.name))
			continue
		}
		if err := printToken(stdout, cfg.Output, o.name, o.response); err != nil {
			return err
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func fetch(ctx context.Context, cfg config, client *rfc6749client.Client, registry *registration.Registry, name string, sem *semaphore.Weighted) (*rfc6749client.TokenResponse, error) {
	reg, err := registry.Get(name)
	if err != nil {
		return nil, err
	}
	request, err := rfc6749client.NewClientCredentialsGrantRequest(reg)
	if err != nil {
		return nil, err
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.initialInterval
	var ret *rfc6749client.TokenResponse
	err = backoff.RetryNotify(
		func() error {
			result, ok := <-client.GetTokenResponse(ctx, request)
			if !ok {
				return backoff.Permanent(ctx.Err())
			}
			if result.Err != nil {
				if !rfc6749client.IsTransportError(result.Err) {
					return backoff.Permanent(result.Err)
				}
				return result.Err
			}
			ret = result.Response
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(cfg.Retries)), ctx),
		func(err error, delay time.Duration) {
			dlog.Warnf(ctx, "retrying in %s: %v", delay, err)
		})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

type jsonToken struct {
	Registration string `json:"registration"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

func printToken(w io.Writer, format, name string, res *rfc6749client.TokenResponse) error {
	switch format {
	case outputHeader:
		_, err := fmt.Fprintf(w, "Authorization: Bearer %s\n", res.AccessToken)
		return err
	default:
		tok := jsonToken{
			Registration: name,
			AccessToken:  res.AccessToken,
			TokenType:    res.TokenType,
			ExpiresIn:    int64(res.ExpiresIn / time.Second),
			Scope:        res.Scope.String(),
		}
		if !res.ExpiresAt.IsZero() {
			tok.ExpiresAt = res.ExpiresAt.UTC().Format(time.RFC3339)
		}
		return json.NewEncoder(w).Encode(tok)
	}
}
