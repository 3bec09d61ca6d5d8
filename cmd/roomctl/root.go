package main

import (
	"errors"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/npezzotti/roomrent/internal/config"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/logging"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	supabaseURLFlag = "supabase-url"
	anonKeyFlag     = "supabase-anon-key"
	serviceKeyFlag  = "supabase-service-key"
	dsnFlag         = "dsn"
	bucketFlag      = "bucket"
	logLevelFlag    = "log-level"
)

var (
	errNoSupabaseURL = errors.New("supabase url is required (--supabase-url or SUPABASE_URL)")
	errNoServiceKey  = errors.New("service role key is required (--supabase-service-key or SUPABASE_SERVICE_ROLE_KEY)")
	errNoDSN         = errors.New("database url is required (--dsn or DATABASE_URL)")
)

// envKeys maps each flag to the environment variable backing it.
var envKeys = map[string]string{
	supabaseURLFlag: "supabase_url",
	anonKeyFlag:     "supabase_anon_key",
	serviceKeyFlag:  "supabase_service_role_key",
	dsnFlag:         "database_url",
	bucketFlag:      "storage_bucket",
	logLevelFlag:    "log_level",
}

func newGlobalFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		supabaseURLFlag: &cobraflags.StringFlag{
			Name:  supabaseURLFlag,
			Usage: "Base url of the supabase project (env SUPABASE_URL)",
		},
		anonKeyFlag: &cobraflags.StringFlag{
			Name:  anonKeyFlag,
			Usage: "Public anon api key (env SUPABASE_ANON_KEY)",
		},
		serviceKeyFlag: &cobraflags.StringFlag{
			Name:  serviceKeyFlag,
			Usage: "Service role api key, required for seeding (env SUPABASE_SERVICE_ROLE_KEY)",
		},
		dsnFlag: &cobraflags.StringFlag{
			Name:  dsnFlag,
			Usage: "Postgres connection string; empty uses the REST table store (env DATABASE_URL)",
		},
		bucketFlag: &cobraflags.StringFlag{
			Name:  bucketFlag,
			Usage: "Storage bucket for room images (env STORAGE_BUCKET)",
		},
		logLevelFlag: &cobraflags.StringFlag{
			Name:  logLevelFlag,
			Usage: "Log level (env LOG_LEVEL)",
		},
	}
}

type settings struct {
	SupabaseURL string
	AnonKey     string
	ServiceKey  string
	DSN         string
	Bucket      string
	LogLevel    string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(envKeys[bucketFlag], config.DefaultStorageBucket)
	v.SetDefault(envKeys[logLevelFlag], "info")
	return v
}

// resolveSettings prefers explicit flag values over the environment.
func resolveSettings(v *viper.Viper, flagValue func(name string) string) settings {
	get := func(name string) string {
		if s := strings.TrimSpace(flagValue(name)); s != "" {
			return s
		}
		return strings.TrimSpace(v.GetString(envKeys[name]))
	}

	return settings{
		SupabaseURL: get(supabaseURLFlag),
		AnonKey:     get(anonKeyFlag),
		ServiceKey:  get(serviceKeyFlag),
		DSN:         get(dsnFlag),
		Bucket:      get(bucketFlag),
		LogLevel:    get(logLevelFlag),
	}
}

// env is what every subcommand runs against.
type env struct {
	settings
	log *zap.Logger
}

func (e *env) clientWithKey(key string) (*supabase.Client, error) {
	if e.SupabaseURL == "" {
		return nil, errNoSupabaseURL
	}
	if key == "" {
		return nil, errors.New("an api key is required (--supabase-anon-key or --supabase-service-key)")
	}

	return supabase.NewClient(e.SupabaseURL, key, e.log.Named("supabase")), nil
}

func (e *env) adminClient() (*supabase.Client, error) {
	if e.ServiceKey == "" {
		return nil, errNoServiceKey
	}

	return e.clientWithKey(e.ServiceKey)
}

// repository opens Postgres when a dsn is set and falls back to the REST
// table store through client. The returned func releases it.
func (e *env) repository(client *supabase.Client) (database.RoomRepository, func(), error) {
	if e.DSN == "" {
		return database.NewRestRoomRepository(client), func() {}, nil
	}

	pg, err := database.NewPgRoomRepository(e.DSN)
	if err != nil {
		return nil, nil, err
	}

	return pg, func() {
		if err := pg.Close(); err != nil {
			e.log.Warn("db close", zap.Error(err))
		}
	}, nil
}

func newRootCommand() *cobra.Command {
	flags := newGlobalFlags()
	e := &env{}

	root := &cobra.Command{
		Use:           "roomctl",
		Short:         "Administer a roomrent deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.settings = resolveSettings(newViper(), func(name string) string {
				return flags[name].GetString()
			})

			logger, err := logging.NewLogger(e.LogLevel, "console", "roomctl")
			if err != nil {
				return err
			}
			e.log = logger
			return nil
		},
	}

	for _, sub := range []*cobra.Command{
		newSeedCommand(e),
		newSeedImagesCommand(e),
		newDiagnosticsCommand(e),
		newMigrateCommand(e),
	} {
		cobraflags.RegisterMap(sub, flags)
		root.AddCommand(sub)
	}

	return root
}
