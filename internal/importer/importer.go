// Package importer adds notes found in markdown files, directories of them,
// or git repositories. Notes whose content is already stored are skipped, so
// importing the same source twice adds nothing the second time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/gitsource"
	"github.com/conorfennell/notetaker/internal/notes"
	"github.com/conorfennell/notetaker/internal/parser"
)

// Report summarizes one import.
type Report struct {
	Parsed  int
	Added   int
	Skipped int
	// Errors holds per-file and per-note failures that did not stop the run.
	Errors []error
}

type Importer struct {
	app      *app.App
	log      logrus.FieldLogger
	reposDir string
}

// New returns an Importer that checks remote sources out under reposDir.
func New(a *app.App, log logrus.FieldLogger, reposDir string) *Importer {
	return &Importer{app: a, log: log, reposDir: reposDir}
}

// Import reads source, which is a markdown file, a directory or a git URL.
func (im *Importer) Import(ctx context.Context, source string) (Report, error) {
	path := source
	if gitsource.IsRemote(source) {
		localPath, err := gitsource.LocalPath(im.reposDir, source)
		if err != nil {
			return Report{}, err
		}
		if err := gitsource.Sync(ctx, source, localPath, im.log); err != nil {
			return Report{}, err
		}
		path = localPath
	}

	parsed, parseErrors, err := collect(path)
	if err != nil {
		return Report{}, err
	}
	report := Report{Parsed: len(parsed), Errors: parseErrors}

	err = im.app.Do(ctx, func(repo *notes.Repository) error {
		seen := make(map[string]bool)
		for n, err := range repo.ListAll(ctx) {
			if err != nil {
				return err
			}
			seen[Fingerprint(n)] = true
		}

		for _, n := range parsed {
			fp := Fingerprint(n)
			if seen[fp] {
				report.Skipped++
				continue
			}
			created, err := repo.Create(ctx, n.Title, n.Body)
			switch {
			case errors.Is(err, notes.ErrDuplicateTitle):
				report.Skipped++
				report.Errors = append(report.Errors, fmt.Errorf("note %q: %w", n.Title, err))
				continue
			case err != nil:
				return err
			}
			seen[fp] = true
			report.Added++
			im.log.WithFields(logrus.Fields{"id": created.ID, "title": n.Title}).Debug("note imported")
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("import %s: %w", source, err)
	}

	im.log.WithFields(logrus.Fields{
		"source":  source,
		"parsed":  report.Parsed,
		"added":   report.Added,
		"skipped": report.Skipped,
		"errors":  len(report.Errors),
	}).Info("import complete")
	return report, nil
}

// collect parses path, walking it for .md files when it is a directory.
func collect(path string) ([]domain.Note, []error, error) {
	var parsed []domain.Note
	var parseErrors []error

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		// A single file is imported whatever its extension.
		if p != path && !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileNotes, parseErr := parser.ParseFile(p)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", p, parseErr))
		}
		parsed = append(parsed, fileNotes...)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", path, walkErr)
	}
	return parsed, parseErrors, nil
}
