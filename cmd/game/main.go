package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tatianab/password-game/internal/chats"
	"github.com/tatianab/password-game/internal/client"
	"github.com/tatianab/password-game/internal/config"
	"github.com/tatianab/password-game/internal/engine"
	"github.com/tatianab/password-game/internal/game"
	"github.com/tatianab/password-game/internal/storage"
	"github.com/tatianab/password-game/internal/tui"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PASSWORD_GAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "game",
		Short: "Talk a password-guarding AI out of its secret, one life at a time.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "base URL of the game backend (env: PASSWORD_GAME_API_URL)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for saved game state (env: PASSWORD_GAME_DATA_DIR)")
	fs.IntVar(&cfg.Lives, "lives", cfg.Lives, "starting life count (env: PASSWORD_GAME_LIVES)")
	fs.DurationVar(&cfg.StreamDelay, "stream-delay", cfg.StreamDelay, "minimum delay between streamed response chunks (env: PASSWORD_GAME_STREAM_DELAY)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: PASSWORD_GAME_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceUsage = true

	return cmd
}

func run(cfg *config.Config) error {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.Verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	st := storage.New(cfg.DataDir, cfg.Lives, logger)
	cl := client.New(cfg.APIBaseURL, cfg.StreamDelay, logger)
	ch := chats.New(st)
	gs := game.New(st, cl, cfg.Lives, logger)
	eng := engine.New(ch, gs, cl, logger)

	return tui.Run(eng)
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Printf("Error loading config: %v\n", err)
	}
	cfg := config.Default()
	cobra.CheckErr(newCmd(&cfg).Execute())
}
