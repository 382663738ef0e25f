package commands

import (
	"fmt"

	"github.com/klabast/wb-services/daily-tracker/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runtime carries what subcommands share: configuration, logger and the
// lazily opened store.
type runtime struct {
	v       *viper.Viper
	cfgFile string
	cfg     *app.Config
	log     *zap.SugaredLogger
	store   *app.Store
}

// NewRootCommand builds the daily-tracker command tree
func NewRootCommand() *cobra.Command {
	rt := &runtime{v: viper.New()}

	root := &cobra.Command{
		Use:           "daily-tracker",
		Short:         "Track named counters per day",
		Long:          "Define counters, adjust today's value and view a month of daily counts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.cfgFile, "config", "", "config file (default ./daily-tracker.yaml if present)")
	flags.String("data", app.DefaultDataFile, "path to the data file")
	flags.String("storage", app.StorageJSON, "storage driver: json or bolt")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")

	bind := map[string]string{
		"data_file":  "data",
		"storage":    "storage",
		"log.level":  "log-level",
		"log.format": "log-format",
	}
	for key, flag := range bind {
		if err := rt.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	root.AddCommand(
		newListCommand(rt),
		newAddCommand(rt),
		newRemoveCommand(rt),
		newAdjustCommand(rt, "inc", "Increment a counter", 1),
		newAdjustCommand(rt, "dec", "Decrement a counter (never below zero)", -1),
		newGetCommand(rt),
		newMonthCommand(rt),
		newExportCommand(rt),
		newServeCommand(rt),
		newHashPasswordCommand(rt),
	)
	return root
}

func (rt *runtime) init() error {
	cfg, err := app.LoadConfig(rt.v, rt.cfgFile)
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.log = log
	return nil
}

func (rt *runtime) close() {
	if rt.log != nil {
		_ = rt.log.Sync()
	}
}

// openStore loads the store on first use
func (rt *runtime) openStore() (*app.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	persister, err := app.NewPersister(rt.cfg, rt.log)
	if err != nil {
		return nil, err
	}
	store, err := app.OpenStore(persister, rt.log)
	if err != nil {
		return nil, err
	}
	rt.store = store
	return store, nil
}
