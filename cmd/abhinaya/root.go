package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/headpose"
	"github.com/ayusman/abhinaya/internal/mapping"
	"github.com/ayusman/abhinaya/internal/retarget"
	"github.com/ayusman/abhinaya/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// Default file names under the data directory.
const (
	dataDirName   = ".abhinaya"
	dbFileName    = "abhinaya.db"
	modelFileName = "flame.npz"
)

var (
	dbPath      string
	tuningPath  string
	modelPath   string
	mappingsDir string

	// st is opened on demand by subcommands that need it.
	st *store.Store
)

var rootCmd = &cobra.Command{
	Use:     "abhinaya",
	Short:   "Blendshape-driven FLAME face retargeting",
	Version: Version,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
			st = nil
		}
	},
	SilenceUsage: true,
}

// Execute runs the command line with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database (default: ~/.abhinaya/abhinaya.db)")
	rootCmd.PersistentFlags().StringVar(&tuningPath, "tuning", "", "tuning file (default: "+config.DefaultConfigPath+" when present)")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "FLAME model archive (.npz)")
	rootCmd.PersistentFlags().StringVar(&mappingsDir, "mappings", "", "directory holding bs2exp.npy, bs2pose.npy and bs2eye.npy")
}

// dataDir returns ~/.abhinaya, creating it if needed.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, dataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// openStore opens the session database once per process.
func openStore() (*store.Store, error) {
	if st != nil {
		return st, nil
	}
	path := dbPath
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, dbFileName)
	}
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	st = s
	return st, nil
}

// loadTuning reads --tuning, or the default tuning file when it exists.
func loadTuning() (*config.TuningConfig, error) {
	if tuningPath != "" {
		return config.LoadTuningConfig(tuningPath)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		log.Printf("Using tuning file %s", config.DefaultConfigPath)
		return config.LoadTuningConfig(config.DefaultConfigPath)
	}
	return config.EmptyTuningConfig(), nil
}

// modelCandidates lists where the model archive is looked for, in order.
func modelCandidates(configured, remembered string) []string {
	var candidates []string
	for _, p := range []string{configured, remembered} {
		if p != "" {
			candidates = append(candidates, p)
		}
	}
	candidates = append(candidates, modelFileName, filepath.Join("assets", modelFileName))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, dataDirName, modelFileName))
	}
	return candidates
}

// resolveModelPath picks --model, then the path remembered in the store, then
// the first existing default location. An explicit --model is returned as is.
func resolveModelPath(s *store.Store) string {
	if modelPath != "" {
		return modelPath
	}
	var remembered string
	if s != nil {
		remembered, _ = s.Settings().Get(store.SettingModelPath)
	}
	candidates := modelCandidates("", remembered)
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

func mappingOptions(t *config.TuningConfig) mapping.Options {
	opts := mapping.DefaultOptions()
	opts.JawOpenIndex = t.GetJawOpenIndex()
	opts.JawOpenWeight = t.GetJawOpenWeight()
	return opts
}

// mappingCandidates lists the default probe order followed by the tuning file's
// extra directories.
func mappingCandidates(t *config.TuningConfig, dir string) []string {
	return append(mapping.DefaultCandidates(dir), t.GetMappingCandidates()...)
}

func engineConfig(t *config.TuningConfig) retarget.Config {
	cfg := retarget.DefaultConfig()
	cfg.Amplification = t.GetAmplification()
	rules := t.GetManualRules()
	cfg.ManualRules = make([]retarget.Rule, len(rules))
	for i, r := range rules {
		cfg.ManualRules[i] = r.Rule()
	}
	return cfg
}

func orientation(t *config.TuningConfig) headpose.Orientation {
	return headpose.Orientation{
		BaseYawDeg:  t.GetBaseYawDeg(),
		BaseTiltDeg: t.GetBaseTiltDeg(),
		YawSign:     t.GetYawSign(),
	}
}

func indices(t *config.TuningConfig) headpose.Indices {
	return headpose.Indices{
		Nose:     t.GetNoseIndex(),
		LeftEye:  t.GetLeftEyeIndex(),
		RightEye: t.GetRightEyeIndex(),
	}
}

// pipeline bundles what every driving command needs.
type pipeline struct {
	model     *flame.Model
	modelPath string
	outcome   mapping.Outcome
	engine    *retarget.Engine
}

// buildPipeline loads the model, discovers mappings and builds the engine.
// A model that cannot be loaded is fatal.
func buildPipeline(t *config.TuningConfig, modelFile, mapDir string) (*pipeline, error) {
	model, err := flame.Load(modelFile)
	if err != nil {
		var mle *flame.ModelLoadError
		if errors.As(err, &mle) {
			return nil, fmt.Errorf("load model: %w (download the FLAME model and convert it to %s)", err, modelFileName)
		}
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.Printf("Loaded FLAME model %s: %d vertices, %d faces, %d expression components",
		modelFile, model.NumVertices(), len(model.Faces), model.NumCoefficients())

	outcome := mapping.Discover(mappingCandidates(t, mapDir), mappingOptions(t))
	engine := retarget.New(model, outcome, engineConfig(t))
	log.Printf("Retargeting mode: %s", engine.Mode())

	return &pipeline{model: model, modelPath: modelFile, outcome: outcome, engine: engine}, nil
}
