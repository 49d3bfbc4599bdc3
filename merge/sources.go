package merge

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"glslinc/config"
)

// collectSources expands command line arguments into a flat, naturally
// ordered list of shader source files. A file argument is taken as is,
// whatever its extension. A directory argument is walked recursively
// (symlinks are not followed) and filtered by the configured extension list.
func collectSources(ctx context.Context, args []string, cfg *config.MergeConfig, log *zap.Logger) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input source was not found (%s): %w", arg, err)
		}

		if fi.Mode().IsDir() {
			found, err := collectDir(ctx, path, cfg, log)
			if err != nil {
				return nil, fmt.Errorf("unable to process directory (%s): %w", arg, err)
			}
			files = append(files, found...)
			continue
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s)", arg)
		}
		files = append(files, path)
	}
	sort.Sort(natural.StringSlice(files))
	return slices.Compact(files), nil
}

// collectDir walks directory tree finding shader files to register.
func collectDir(ctx context.Context, dir string, cfg *config.MergeConfig, log *zap.Logger) (files []string, err error) {
	defer func() {
		if err == nil && len(files) == 0 {
			log.Debug("Nothing to collect", zap.String("dir", dir))
		}
	}()

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// symlinks and other irregular entries
			return nil
		}

		if !hasShaderExt(path, cfg.Extensions) {
			log.Debug("Skipping file, extension not recognized", zap.String("file", path))
			return nil
		}

		if cfg.SkipBinaries {
			binary, err := isBinaryFile(path)
			if err != nil {
				log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
				return nil
			}
			if binary {
				log.Debug("Skipping file, not recognized as text", zap.String("file", path))
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

func hasShaderExt(path string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

// isBinaryFile sniffs the leading bytes of the file for a known binary
// signature. Plain text never matches any registered type.
func isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 262)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil {
		return false, err
	}
	return kind != filetype.Unknown, nil
}

// readSource loads a shader source, transcoding it to UTF-8 when a legacy
// code page was forced on the command line.
func readSource(path string, cp encoding.Encoding) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if cp != nil {
		decoded, err := cp.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("unable to transcode source: %w", err)
		}
		return string(decoded), nil
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("source is not valid UTF-8 (%s), use --force-cp to transcode", path)
	}
	return string(data), nil
}
