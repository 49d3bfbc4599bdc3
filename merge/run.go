// Package merge implements the merge command: it collects shader sources
// from files and directories, feeds them to the include engine and writes the
// flattened result.
package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"glslinc/include"
	"glslinc/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("merge")

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return errors.New("no input sources have been specified")
	}

	// cp semantics: with two or more arguments the last one names the
	// destination directory
	srcs := args
	dst := ""
	if len(args) > 1 {
		srcs, dst = args[:len(args)-1], args[len(args)-1]
	}
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	env.Overwrite, env.ToStdout = cmd.Bool("overwrite"), cmd.Bool("stdout")
	env.OutputName = cmd.String("output-name")

	// Sources produced by old toolchains may be in a legacy code page
	cp := cmd.String("force-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully transcoding all shader sources", zap.String("charset", n))
		}
	}

	runID := uuid.New().String()
	log.Info("Merge starting",
		zap.Strings("sources", srcs), zap.String("destination", dst), zap.String("run_id", runID))
	defer func(start time.Time) {
		log.Info("Merge completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, srcs, dst, log)
}

// process handles the core merge logic independently of CLI framework: it
// expands the source arguments into files, registers them with the engine
// under their base names, composes the result and writes it out.
func process(ctx context.Context, srcs []string, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	files, err := collectSources(ctx, srcs, &env.Cfg.Merge, log)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no shader sources were found in (%s)", strings.Join(srcs, ", "))
	}

	b := include.NewBuilder(env.Log)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := readSource(path, env.CodePage)
		if err != nil {
			return fmt.Errorf("unable to read shader source (%s): %w", path, err)
		}

		name := filepath.Base(path)
		if _, ok := b.Get(name); ok {
			log.Warn("Duplicate source name, later file replaces earlier one",
				zap.String("name", name), zap.String("file", path))
		}
		b.Add(name, content)
	}

	// registration is settled now, store one report entry per surviving name
	if env.Rpt != nil {
		for _, name := range b.Names() {
			content, _ := b.Get(name)
			env.Rpt.StoreData(filepath.Join("inputs", name), []byte(content))
		}
	}

	doc, err := b.Compose()
	if err != nil {
		return fmt.Errorf("unable to merge shader sources: %w", err)
	}
	log.Info("Sources merged", zap.String("root", doc.Root), zap.Int("count", b.Len()))

	if env.Rpt != nil {
		env.Rpt.StoreData(filepath.Join("output", doc.Root), []byte(doc.Content))
	}

	if env.ToStdout {
		_, err := os.Stdout.WriteString(doc.Content)
		return err
	}

	out, err := buildOutputPath(doc.Root, b.Len(), dst, env)
	if err != nil {
		return err
	}
	return writeOutput(out, doc.Content, env, log)
}

func writeOutput(path, content string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(path); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", path)
		}
		log.Warn("Overwriting existing file", zap.String("file", path))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	log.Info("Output written", zap.String("file", path))
	return nil
}
