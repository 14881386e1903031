package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/config"
	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/gui"
	"github.com/keagan/gyrocut/internal/logging"
	"github.com/keagan/gyrocut/internal/mediacache"
	"github.com/keagan/gyrocut/internal/pipeline"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/internal/stabilize"
	"github.com/keagan/gyrocut/pkg/util"
)

const envPrefix = "GYROCUT"

var (
	cfgFile string
	verbose bool
	logJSON bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "gyrocut",
	Short:         "gyrocut - telemetry-driven GoPro highlight cutter",
	Long:          "Scores GoPro recordings by their motion telemetry, cuts the interesting segments, levels the horizon and assembles a highlight reel.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		v.SetEnvPrefix(envPrefix)
		v.AutomaticEnv()
		bindFlags(cmd, v)

		logging.Init(logging.Options{Verbose: verbose, JSON: logJSON})

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./gyrocut.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	pf.String("work-dir", "", "directory holding project folders")
	pf.String("temp-dir", "", "directory for intermediate files")
	pf.Int("concurrency", 0, "videos processed in parallel")
	pf.String("ffmpeg", "", "path to the ffmpeg binary")
	pf.Int("threads", 0, "ffmpeg threads (0 lets ffmpeg decide)")
	pf.Float64("threshold", 0, "interest threshold")
	pf.Int("window", 0, "moving average window in samples")

	analyzeCmd.Flags().Bool("recompute-stale", false, "reanalyze artifacts produced with other parameters")
	analyzeCmd.Flags().Bool("force", false, "reanalyze every video")

	stabilizeCmd.Flags().String("start", "", "segment start (seconds or HH:MM:SS.ms)")
	stabilizeCmd.Flags().String("end", "", "segment end (seconds or HH:MM:SS.ms)")
	stabilizeCmd.Flags().String("mode", "", "continuous or fixed (default from config)")
	stabilizeCmd.Flags().Float64("alpha", 0, "complementary filter coefficient")
	stabilizeCmd.Flags().StringP("output", "o", "", "output path")

	cutCmd.Flags().Bool("stabilize", false, "level the horizon of every segment")
	cutCmd.Flags().String("mode", "", "stabilization mode")
	cutCmd.Flags().Bool("no-title", false, "skip the title card")
	cutCmd.Flags().String("title", "", "title card text (default: project name)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(stabilizeCmd)
	rootCmd.AddCommand(cutCmd)
	rootCmd.AddCommand(curateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
}

// bindFlags applies environment values to every flag the user did not set,
// e.g. GYROCUT_WORK_DIR for --work-dir
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
			}
		}
	})
}

// applyFlags overrides config values with flags that were set
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	if fs.Changed("work-dir") {
		cfg.WorkDir, err = fs.GetString("work-dir")
	}
	if err == nil && fs.Changed("temp-dir") {
		cfg.TempDir, err = fs.GetString("temp-dir")
	}
	if err == nil && fs.Changed("concurrency") {
		cfg.Concurrency, err = fs.GetInt("concurrency")
	}
	if err == nil && fs.Changed("ffmpeg") {
		cfg.FFmpeg.BinaryPath, err = fs.GetString("ffmpeg")
	}
	if err == nil && fs.Changed("threads") {
		cfg.FFmpeg.Threads, err = fs.GetInt("threads")
	}
	if err == nil && fs.Changed("threshold") {
		cfg.Interest.Threshold, err = fs.GetFloat64("threshold")
	}
	if err == nil && fs.Changed("window") {
		cfg.Interest.Window, err = fs.GetInt("window")
	}
	return err
}

// newPipeline wires the ffmpeg executor, metadata cache and pipeline
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, *mediacache.Cache, error) {
	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, nil, err
	}
	if err := util.EnsureDir(cfg.WorkDir); err != nil {
		return nil, nil, err
	}
	cache, err := mediacache.Open(filepath.Join(cfg.WorkDir, mediacache.DefaultFilename), exec, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	pipe, err := pipeline.New(log.Logger, cfg, pipeline.ExecutorDeps(log.Logger, exec, cache))
	if err != nil {
		return nil, nil, err
	}
	return pipe, cache, nil
}

// collectVideos expands arguments into videos. Directories are loaded as
// projects; no arguments means every project under the work directory.
func collectVideos(cfg *config.Config, args []string) ([]project.Video, error) {
	if len(args) == 0 {
		projects, err := project.List(cfg.WorkDir)
		if err != nil {
			return nil, err
		}
		var out []project.Video
		for _, p := range projects {
			out = append(out, p.Videos...)
		}
		return out, nil
	}

	var out []project.Video
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, project.NewVideo(arg))
			continue
		}
		p, err := project.Load(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Videos...)
	}
	return out, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [video|project dir...]",
	Short: "Score videos and save their interesting segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		videos, err := collectVideos(cfg, args)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			return fmt.Errorf("no videos found")
		}

		pipe, _, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		recompute, _ := cmd.Flags().GetBool("recompute-stale")
		force, _ := cmd.Flags().GetBool("force")
		results, err := pipe.Analyze(cmd.Context(), videos, pipeline.AnalyzeOptions{
			RecomputeStale: recompute,
			Force:          force,
		})
		if err != nil {
			return err
		}

		for _, r := range results {
			ev := log.Info()
			if r.Status == pipeline.StatusDegraded {
				ev = log.Warn().Err(r.Err)
			}
			ev.
				Str("video", r.Video.Filename).
				Str("status", string(r.Status)).
				Int("segments", len(r.Artifact.Segments)).
				Str("selected", util.FormatSeconds(clips.TotalDuration(r.Artifact.Segments))).
				Msg("result")
		}
		return nil
	},
}

var stabilizeCmd = &cobra.Command{
	Use:   "stabilize [video]",
	Short: "Level the horizon of one segment of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		fs := cmd.Flags()

		startArg, _ := fs.GetString("start")
		endArg, _ := fs.GetString("end")
		start, err := util.ParseTimestamp(startArg)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := util.ParseTimestamp(endArg)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}

		opts := pipeline.StabilizeOptions{
			Segment: clips.Segment{StartTime: start, EndTime: end},
		}
		if m, _ := fs.GetString("mode"); m != "" {
			if opts.Mode, err = stabilize.ParseMode(m); err != nil {
				return err
			}
		}
		if fs.Changed("alpha") {
			alpha, _ := fs.GetFloat64("alpha")
			opts.Alpha = &alpha
		}
		opts.Output, _ = fs.GetString("output")
		opts.Progress = func(frame, total int) {
			if frame%100 == 0 || frame == total {
				log.Info().Int("frame", frame).Int("total", total).Msg("stabilizing")
			}
		}

		pipe, _, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		out, err := pipe.Stabilize(cmd.Context(), project.NewVideo(args[0]), opts)
		if err != nil {
			return err
		}
		log.Info().Str("output", out).Msg("done")
		return nil
	},
}

var cutCmd = &cobra.Command{
	Use:   "cut [project dir]",
	Short: "Assemble the highlight reel of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		fs := cmd.Flags()

		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		opts := pipeline.CutOptions{
			Stabilize: cfg.Cut.Stabilize,
			TitleCard: cfg.Cut.TitleCard,
		}
		if fs.Changed("stabilize") {
			opts.Stabilize, _ = fs.GetBool("stabilize")
		}
		if noTitle, _ := fs.GetBool("no-title"); noTitle {
			opts.TitleCard = false
		}
		opts.Title, _ = fs.GetString("title")
		if m, _ := fs.GetString("mode"); m != "" {
			if opts.Mode, err = stabilize.ParseMode(m); err != nil {
				return err
			}
		}

		pipe, _, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		out, err := pipe.Cut(cmd.Context(), proj, opts)
		if err != nil {
			return err
		}
		log.Info().Str("output", out).Msg("highlight reel ready")
		return nil
	},
}

var curateCmd = &cobra.Command{
	Use:   "curate [video]",
	Short: "Review and edit the segments of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		v := project.NewVideo(args[0])

		_, cache, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		entry, err := cache.Lookup(cmd.Context(), v.Path())
		if err != nil {
			return err
		}
		return gui.RunEditor(log.Logger, v, entry.Duration)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects and their analysis state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		projects, err := project.List(cfg.WorkDir)
		if err != nil {
			return err
		}

		for _, p := range projects {
			analyzed := 0
			for _, v := range p.Videos {
				if util.NonEmptyFile(v.SegmentsPath()) {
					analyzed++
				}
			}
			fmt.Printf("%-30s %3d videos  %3d analyzed\n", p.Name, len(p.Videos), analyzed)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "gyrocut.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}
