package hashes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/filesystem"
	"github.com/ritoshark/flint/pkg/flint"
	"github.com/ritoshark/flint/pkg/logging"
)

const (
	// upstreamManifestURL is the manifest endpoint of the upstream hash
	// mirror (the CommunityDragon data repository).
	upstreamManifestURL = "https://api.github.com/repos/CommunityDragon/Data/contents/hashes/lol"
	// staleAfter is the age past which a local hash file is considered stale
	// and re-downloaded by Refresh.
	staleAfter = 14 * 24 * time.Hour
	// downloadTimeout is the per-request timeout for manifest and file
	// downloads.
	downloadTimeout = 5 * time.Minute
)

// downloadFiles is the fixed allowlist of upstream files fetched by Refresh.
// The game list ships split into numbered parts that are merged locally.
var downloadFiles = []string{
	"hashes.binentries.txt",
	"hashes.binhashes.txt",
	"hashes.bintypes.txt",
	"hashes.binfields.txt",
	"hashes.game.txt.0",
	"hashes.game.txt.1",
	"hashes.lcu.txt",
	"hashes.rst.txt",
}

// DownloadStats reports the outcome of a refresh operation.
type DownloadStats struct {
	// Downloaded is the number of files fetched from the mirror.
	Downloaded int
	// Skipped is the number of files that were already fresh.
	Skipped int
	// Errors is the number of files that failed to download.
	Errors int
}

// manifestEntry is a single file record in the upstream manifest.
type manifestEntry struct {
	Name        string  `json:"name"`
	DownloadURL *string `json:"download_url"`
}

// FileStatus describes the local state of one allowlisted hash file.
type FileStatus struct {
	// Name is the file name.
	Name string
	// Present indicates whether the file exists locally.
	Present bool
	// Size is the file size in bytes, if present.
	Size int64
	// ModTime is the file modification time, if present.
	ModTime time.Time
	// Stale indicates whether the file is older than the staleness
	// threshold (or absent).
	Stale bool
}

// Refresh synchronizes the local hash directory with the upstream mirror.
// Each allowlisted file is downloaded if absent or older than the staleness
// threshold (or unconditionally when force is set). Split files are merged
// into their base name afterwards. Per-file failures are counted and logged
// but never abort the batch; only a manifest failure is fatal.
func Refresh(ctx context.Context, directory string, force bool, logger *logging.Logger) (DownloadStats, error) {
	var stats DownloadStats

	if err := os.MkdirAll(directory, 0755); err != nil {
		return stats, errors.Wrap(err, "unable to create hash directory")
	}

	client := &http.Client{Timeout: downloadTimeout}

	manifest, err := fetchManifest(ctx, client)
	if err != nil {
		return stats, errors.Wrap(err, "unable to fetch upstream manifest")
	}
	logger.Debugf("upstream manifest lists %d files", len(manifest))

	for _, name := range downloadFiles {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		path := filepath.Join(directory, name)
		if !force && !needsUpdate(path) {
			logger.Debugf("skipping fresh file: %s", name)
			stats.Skipped++
			continue
		}
		if err := downloadFile(ctx, client, manifest, name, path); err != nil {
			logger.Warnf("unable to download %s: %v", name, err)
			stats.Errors++
			continue
		}
		logger.Infof("downloaded %s", name)
		stats.Downloaded++
	}

	if err := mergeSplitFiles(directory); err != nil {
		logger.Warnf("unable to merge split files: %v", err)
		stats.Errors++
	}

	logger.Infof(
		"hash refresh complete: %d downloaded, %d skipped, %d errors",
		stats.Downloaded, stats.Skipped, stats.Errors,
	)

	return stats, nil
}

// fetchManifest downloads and decodes the upstream manifest.
func fetchManifest(ctx context.Context, client *http.Client) ([]manifestEntry, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamManifestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to construct request")
	}
	request.Header.Set("User-Agent", "flint/"+flint.Version)

	response, err := client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", response.Status)
	}

	var manifest []manifestEntry
	if err := json.NewDecoder(response.Body).Decode(&manifest); err != nil {
		return nil, errors.Wrap(err, "unable to decode manifest")
	}
	return manifest, nil
}

// downloadFile fetches a single file listed in the manifest and writes it
// atomically to the specified path.
func downloadFile(ctx context.Context, client *http.Client, manifest []manifestEntry, name, path string) error {
	var url string
	for _, entry := range manifest {
		if entry.Name == name {
			if entry.DownloadURL == nil {
				return errors.New("manifest entry has no download URL")
			}
			url = *entry.DownloadURL
			break
		}
	}
	if url == "" {
		return errors.New("file not present in upstream manifest")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "unable to construct request")
	}
	request.Header.Set("User-Agent", "flint/"+flint.Version)

	response, err := client.Do(request)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status: %s", response.Status)
	}

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read response body")
	}

	if err := filesystem.WriteFileAtomic(path, content, 0644); err != nil {
		return errors.Wrap(err, "unable to write file")
	}
	return nil
}

// needsUpdate indicates whether the file at the specified path is absent or
// older than the staleness threshold.
func needsUpdate(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > staleAfter
}

// mergeSplitFiles concatenates split downloads (numbered suffixes, in suffix
// order) into their base file. The split parts are kept so that their ages
// remain visible to the next staleness check.
func mergeSplitFiles(directory string) error {
	base := filepath.Join(directory, "hashes.game.txt")
	var merged []byte
	found := 0
	for part := 0; ; part++ {
		content, err := os.ReadFile(fmt.Sprintf("%s.%d", base, part))
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return errors.Wrapf(err, "unable to read split part %d", part)
		}
		merged = append(merged, content...)
		found++
	}
	if found == 0 {
		return nil
	}
	if err := filesystem.WriteFileAtomic(base, merged, 0644); err != nil {
		return errors.Wrap(err, "unable to write merged file")
	}
	return nil
}

// Status reports the local state of every allowlisted hash file plus the
// merged game list.
func Status(directory string) []FileStatus {
	names := append([]string{}, downloadFiles...)
	names = append(names, "hashes.game.txt")
	result := make([]FileStatus, 0, len(names))
	for _, name := range names {
		status := FileStatus{Name: name}
		if info, err := os.Stat(filepath.Join(directory, name)); err == nil {
			status.Present = true
			status.Size = info.Size()
			status.ModTime = info.ModTime()
			status.Stale = time.Since(info.ModTime()) > staleAfter
		} else {
			status.Stale = true
		}
		result = append(result, status)
	}
	return result
}
