package gitsource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
)

// IsRemote reports whether source looks like a git URL rather than a local
// path.
func IsRemote(source string) bool {
	if strings.HasPrefix(source, "git@") {
		return true
	}
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
		return u.Host != ""
	default:
		return false
	}
}

// LocalPath maps a repository URL to a checkout directory under baseDir,
// e.g. https://github.com/acme/notes.git to baseDir/github.com/acme/notes.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || parsedURL.Host == "" {
		// scp-like syntax: git@host:owner/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 && hostAndUser[1] != "" {
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return safeJoin(baseDir, hostAndUser[1], repoPath)
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return safeJoin(baseDir, parsedURL.Host, sanitizedPath)
}

func safeJoin(baseDir, host, repoPath string) (string, error) {
	p := filepath.Join(baseDir, host, repoPath)
	rel, err := filepath.Rel(baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("git URL escapes checkout directory: %s/%s", host, repoPath)
	}
	return p, nil
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, repoURL, localPath string, logger logrus.FieldLogger) error {
	log := logger.WithFields(logrus.Fields{"url": repoURL, "path": localPath})
	// git's sideband output goes to the debug log.
	progress := log.WriterLevel(logrus.DebugLevel)
	defer progress.Close()

	_, err := os.Stat(localPath)
	if os.IsNotExist(err) {
		log.Info("cloning repository")
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		log.Info("clone successful")
		return nil
	} else if err != nil {
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	log.Info("pulling latest changes")
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	log.Info("pull successful (or already up-to-date)")
	return nil
}
