package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"anitrack/config"
	"anitrack/internal/episodemap"
	"anitrack/internal/filenameparser"
	"anitrack/internal/player"
	"anitrack/internal/repository"
	"anitrack/internal/resolver"
	"anitrack/models"
	"anitrack/services/remote"
	"anitrack/services/session"
	"anitrack/services/sync"
)

func main() {
	offline := flag.Bool("offline", false, "force offline mode; never call the remote service")
	playOne := flag.Bool("play-one", false, "play and track a single next episode, then exit")
	doSync := flag.Bool("sync", false, "push every locally dirty entry upstream, then exit")
	logFile := flag.String("log-file", "", "rotate logs to this path instead of stderr")
	flag.Parse()

	nickname := flag.Arg(0)

	logger := newLogger(*logFile)

	configDir, err := os.UserConfigDir()
	if err != nil {
		logger.Error("resolve config directory", "error", err)
		os.Exit(1)
	}
	configDir = filepath.Join(configDir, "anitrack")
	cfgManager := config.NewManager(configDir)

	store, err := cfgManager.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	dataDir, err := os.UserCacheDir()
	if err != nil {
		logger.Error("resolve data directory", "error", err)
		os.Exit(1)
	}
	dataDir = filepath.Join(dataDir, "anitrack")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.Error("create data directory", "error", err)
		os.Exit(1)
	}

	repo, err := repository.Open(filepath.Join(dataDir, "data.sqlite"))
	if err != nil {
		logger.Error("open repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var svc remote.Service
	if *offline {
		svc = remote.NewOfflineBackend()
	} else {
		token, tokenErr := loadToken(configDir)
		if tokenErr != nil {
			logger.Warn("no stored credential, falling back to offline mode", "error", tokenErr)
			svc = remote.NewOfflineBackend()
		} else {
			svc = remote.NewAniListBackend(token, logger)
		}
	}

	ctx := context.Background()

	switch {
	case *doSync:
		os.Exit(runSync(ctx, repo, svc, logger))
	case *playOne:
		os.Exit(runPlayOne(ctx, repo, svc, store, logger, nickname))
	case nickname != "":
		os.Exit(runPlayOne(ctx, repo, svc, store, logger, nickname))
	default:
		fmt.Println("anitrack: no mode flag given; the interactive TUI is not implemented by this build")
	}
}

func newLogger(logFile string) *slog.Logger {
	if logFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "anitrack: could not create log directory, logging to stderr: %v\n", err)
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(rotator, nil))
}

func loadToken(configDir string) (models.AccessToken, error) {
	data, err := os.ReadFile(filepath.Join(configDir, "token"))
	if err != nil {
		return models.AccessToken{}, err
	}
	return models.DecodeAccessToken(string(data))
}

func runSync(ctx context.Context, repo *repository.Repository, svc remote.Service, logger *slog.Logger) int {
	engine := sync.NewEngine(logger)
	errs := engine.SyncAll(ctx, repo, svc)
	for _, err := range errs {
		logger.Error("sync failed", "error", err)
	}
	if len(errs) > 0 {
		return 1
	}
	return 0
}

func runPlayOne(ctx context.Context, repo *repository.Repository, svc remote.Service, store config.Store, logger *slog.Logger, nickname string) int {
	if nickname == "" {
		logger.Error("no nickname given")
		return 1
	}

	cfg, info, entry, err := repo.LoadByNickname(ctx, nickname)
	if err != nil {
		logger.Error("load series", "error", err)
		return 1
	}
	if cfg == nil {
		logger.Error("no such series", "nickname", nickname)
		return 1
	}

	parser, err := parserFor(cfg.EpisodeMatcher)
	if err != nil {
		logger.Error("build episode matcher", "error", err)
		return 1
	}

	epMap, err := episodemap.Scan(afero.NewOsFs(), cfg.Path, parser, logger)
	if err != nil {
		logger.Error("scan episodes", "error", err)
		return 1
	}

	if refreshed, err := resolver.ResolveByID(ctx, svc, cfg.ID); err == nil {
		info = &refreshed
	} else {
		logger.Warn("could not refresh catalog facts, using cached copy", "error", err)
	}

	start := time.Now()
	sess := session.New(entry, *info, start)

	if err := sess.BeginWatching(ctx, svc, store, repo); err != nil {
		logger.Error("begin watching", "error", err)
		return 1
	}

	episodePath, err := sess.NextEpisodePath(epMap)
	if err != nil {
		logger.Error("resolve next episode", "error", err)
		return 1
	}

	args := append([]string{}, store.PlayerArgs...)
	args = append(args, cfg.PlayerArgs...)
	if err := player.Launch(ctx, store.PlayerPath, episodePath, args...); err != nil {
		logger.Warn("player exited non-zero", "error", err)
	}

	if time.Now().Before(sess.NextWatchProgressTime(store)) {
		logger.Info("playback too short, not counting progress")
		return 0
	}

	if err := sess.EpisodeCompleted(ctx, svc, store, repo); err != nil {
		logger.Error("record episode completion", "error", err)
		return 1
	}

	return 0
}

func parserFor(pattern string) (*filenameparser.Parser, error) {
	if pattern == "" {
		return filenameparser.Default(), nil
	}
	return filenameparser.NewCustom(pattern)
}
