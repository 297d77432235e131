// assettool inspects 3D models and the GRF archives they ship in.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-assets/internal/config"
	"github.com/Faultbox/midgard-assets/internal/logger"
	"github.com/Faultbox/midgard-assets/pkg/asset"
	"github.com/Faultbox/midgard-assets/pkg/grf"
)

var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, config.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			}
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		return cmdInfo(cfg, args, out)
	case "textures", "tex":
		return cmdTextures(cfg, args, out)
	case "list", "ls":
		return cmdList(args, out)
	case "extract", "x":
		return cmdExtract(args, out)
	case "formats":
		fmt.Fprintln(out, strings.Join(asset.Extensions(), " "))
		return nil
	case "config":
		return cmdConfig(cfg, args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `assettool - model and GRF archive inspector

Usage:
  assettool [flags] <command> [options]

Flags:
  -config <file>    Config file (.yaml or .toml)
  -archive <grf>    Search a GRF archive for models (repeatable)
  -format <ext>     Force an importer (gltf, glb, rsm)
  -output <fmt>     Output format: text or yaml
  -v                Verbose output
  -debug            Debug logging

Commands:
  info <model>                       Show mesh and texture counts
  textures <model>                   List the model's texture pool
  list <file.grf> [pattern]          List archive files (optional glob pattern)
  extract <file.grf> <path> [output] Extract a file from an archive
  formats                            List supported model extensions
  config [file]                      Print or save the effective config

Examples:
  assettool info tree.gltf
  assettool -archive data.grf -output yaml info data/model/프론테라/tree.rsm
  assettool list data.grf "data/model/*/*.rsm"`)
}

// loadModel assembles the model at path. The first configured archive that
// contains path is used as its file system; otherwise it is read from disk.
func loadModel(cfg *config.Config, path string) (*asset.Model, string, error) {
	opts := []asset.Option{asset.WithLogger(logger.Named("asset"))}

	if ext := cfg.ImportExt(); ext != "" {
		imp, err := asset.ImporterFor(ext)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, asset.WithImporter(imp))
	}

	for _, name := range cfg.Import.Archives {
		archive, err := grf.Open(name)
		if err != nil {
			logger.Warn("skipping archive", zap.String("archive", name), zap.Error(err))
			continue
		}
		if !archive.Contains(path) {
			archive.Close()
			continue
		}
		// Archives store names normalized; resolve textures the same way.
		m, err := asset.Load(path, append(opts, asset.WithFileSystem(archive.FS()))...)
		archive.Close()
		return m, name, err
	}

	m, err := asset.Load(path, opts...)
	return m, "", err
}

type meshReport struct {
	Name      string `yaml:"name"`
	Vertices  int    `yaml:"vertices"`
	Triangles int    `yaml:"triangles"`
	Textures  int    `yaml:"textures"`
}

type infoReport struct {
	Model   string       `yaml:"model"`
	Archive string       `yaml:"archive,omitempty"`
	Stats   asset.Stats  `yaml:"stats"`
	Meshes  []meshReport `yaml:"meshes,omitempty"`
}

func cmdInfo(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: info needs a model path", errUsage)
	}

	m, archive, err := loadModel(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer m.Release()

	report := infoReport{Model: fs.Arg(0), Archive: archive, Stats: m.Stats()}
	if cfg.Output.Verbose {
		for _, mesh := range m.Meshes() {
			report.Meshes = append(report.Meshes, meshReport{
				Name:      mesh.Name(),
				Vertices:  mesh.VertexCount(),
				Triangles: mesh.TriangleCount(),
				Textures:  mesh.TextureCount(),
			})
		}
	}

	if cfg.Output.Format == config.FormatYAML {
		return writeYAML(out, report)
	}

	fmt.Fprintf(out, "Model:     %s\n", report.Model)
	if report.Archive != "" {
		fmt.Fprintf(out, "Archive:   %s\n", report.Archive)
	}
	fmt.Fprintf(out, "Meshes:    %d\n", report.Stats.Meshes)
	fmt.Fprintf(out, "Vertices:  %d\n", report.Stats.Vertices)
	fmt.Fprintf(out, "Triangles: %d\n", report.Stats.Triangles)
	fmt.Fprintf(out, "Textures:  %d\n", report.Stats.Textures)
	if len(report.Meshes) > 0 {
		fmt.Fprintln(out)
		for _, mr := range report.Meshes {
			fmt.Fprintf(out, "  %-24s %6d verts %6d tris %2d tex\n", mr.Name, mr.Vertices, mr.Triangles, mr.Textures)
		}
	}
	return nil
}

type textureReport struct {
	Type string     `yaml:"type"`
	File string     `yaml:"file,omitempty"`
	RGBA [4]float32 `yaml:"rgba,flow,omitempty"`
}

func cmdTextures(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: textures needs a model path", errUsage)
	}

	m, _, err := loadModel(cfg, args[0])
	if err != nil {
		return err
	}
	defer m.Release()

	var reports []textureReport
	for _, t := range m.Textures() {
		r := textureReport{Type: t.Type.String()}
		if t.IsColor() {
			r.RGBA = t.RGBA
		} else {
			r.File = filepath.ToSlash(filepath.Join(t.FilePath, t.FileName))
		}
		reports = append(reports, r)
	}

	if cfg.Output.Format == config.FormatYAML {
		return writeYAML(out, reports)
	}
	for _, r := range reports {
		if r.File != "" {
			fmt.Fprintf(out, "%-18s %s\n", r.Type, r.File)
		} else {
			fmt.Fprintf(out, "%-18s rgba(%g, %g, %g, %g)\n", r.Type, r.RGBA[0], r.RGBA[1], r.RGBA[2], r.RGBA[3])
		}
	}
	return nil
}

func cmdList(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: list needs an archive", errUsage)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	files := archive.List()
	if fs.NArg() > 1 {
		if files, err = archive.Glob(fs.Arg(1)); err != nil {
			return err
		}
	}

	for i, f := range files {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Fprintln(out, f)
	}
	return nil
}

func cmdExtract(args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: extract needs an archive and a path", errUsage)
	}

	grfPath := args[0]
	filePath := args[1]
	outputDir := "."
	if len(args) > 2 {
		outputDir = args[2]
	}

	archive, err := grf.Open(grfPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	data, err := archive.Read(filePath)
	if err != nil {
		return err
	}

	// Create output path
	outputPath := filepath.Join(outputDir, filepath.Base(filepath.FromSlash(filePath)))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return err
	}

	fmt.Fprintf(out, "Extracted: %s (%d bytes)\n", outputPath, len(data))
	return nil
}

func cmdConfig(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved: %s\n", args[0])
		return nil
	}
	return cfg.Encode(out, false)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
