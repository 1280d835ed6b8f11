// Command voxd serves the voxkit transcription and summarization pipeline
// over HTTP.
//
//	voxd -config config.yml            serve the API
//	voxd -config config.yml -run a.wav run the pipeline once and print JSON
//	voxd -encrypt sk-...               seal a secret for the config file
//	voxd -token recorder-app -scopes pipeline,read
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kbukum/voxkit/auth"
	"github.com/kbukum/voxkit/bootstrap"
	"github.com/kbukum/voxkit/config"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/pipeline"
	"github.com/kbukum/voxkit/secrets"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voxd:", err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", appErr.Hint)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "config file (default: search ./config.yml, ./config/config.yml, the user config dir)")
		envFile     = flag.String("env", "", ".env file to load")
		runFile     = flag.String("run", "", "run the pipeline once on this audio file and print the result")
		topic       = flag.Bool("topic", false, "with -run, also generate a title")
		encrypt     = flag.String("encrypt", "", "encrypt a value for the config file and exit")
		tokenFor    = flag.String("token", "", "issue an API token for this subject and exit")
		scopes      = flag.String("scopes", "", "comma separated scopes for -token (empty means all)")
		showVersion = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	var opts []config.LoaderOption
	if *configPath != "" {
		opts = append(opts, config.WithConfigFile(*configPath))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	var cfg Config
	if err := config.LoadConfig("voxd", &cfg, opts...); err != nil {
		return err
	}

	if *encrypt != "" {
		return sealValue(cfg.Secrets, *encrypt)
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	cipher, err := secrets.Load(cfg.Secrets)
	if err != nil {
		return err
	}

	if *tokenFor != "" {
		return issueToken(cfg, cipher, *tokenFor, *scopes)
	}

	ctx := context.Background()
	core, err := buildCore(ctx, app, cipher)
	if err != nil {
		return err
	}

	if *runFile != "" {
		return app.RunTask(ctx, func(ctx context.Context) error {
			return runOnce(ctx, core, *runFile, *topic)
		})
	}

	if err := buildServer(app, core, cipher); err != nil {
		return err
	}
	return app.Run(ctx)
}

func sealValue(cfg secrets.Config, value string) error {
	cfg.ApplyDefaults()
	c, err := secrets.Load(cfg)
	if err != nil {
		return err
	}
	if c == nil {
		return apperrors.ConfigMissing(cfg.KeyEnv).
			WithHint("Export " + cfg.KeyEnv + " with the passphrase voxd will use to decrypt.")
	}
	sealed, err := secrets.Seal(c, value)
	if err != nil {
		return err
	}
	fmt.Println(sealed)
	return nil
}

func issueToken(cfg Config, cipher secrets.Cipher, subject, scopes string) error {
	secret, err := secrets.Reveal(cfg.Auth.Secret, cipher, cfg.Secrets.KeyEnv, "auth.secret")
	if err != nil {
		return err
	}
	authCfg := cfg.Auth
	authCfg.Secret = secret
	svc, err := auth.NewService(authCfg)
	if err != nil {
		return err
	}
	var list []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	token, err := svc.Issue(subject, list...)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runOnce(ctx context.Context, c *core, path string, topic bool) error {
	sel := c.selection.Get()
	res, runErr := c.orchestrator.Run(ctx, pipeline.RunConfig{
		Audio:                 transcription.FromPath(path),
		RecordingProvider:     sel.Recording,
		TranscriptionProvider: sel.Transcription,
		SummarizationProvider: sel.Summarization,
		Topic:                 topic,
		OnFallback: func(ev pipeline.FallbackEvent) {
			fmt.Fprintf(os.Stderr, "%s: %s failed, using %s\n", ev.Stage, ev.From, ev.To)
		},
	})
	if res != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return runErr
}
