// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// extractTarget pairs one archive entry with its output location.
type extractTarget struct {
	outPath string
	entry   EntryInfo
}

// Extract writes selected entries to dstDir using MaxWorkers parallel workers.
// The first failure cancels remaining work and is returned.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	opts.applyDefaults()
	openFlags, ok := extractOpenFlags[opts.FileMode]
	if !ok {
		return fmt.Errorf("unknown extract file mode %q", opts.FileMode)
	}

	entries, err := r.selectExtractEntries(opts)
	if err != nil {
		return err
	}

	names := entries
	if !opts.RawNames {
		if names, err = sanitizeOutputNames(entries); err != nil {
			return err
		}
	}

	root, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	targets, err := planExtractTargets(root, entries, names)
	if err != nil || len(targets) == 0 {
		return err
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, target := range targets {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := r.extractTo(target, openFlags, opts.FileMode == ExtractFileModeAuto)
			if err != nil {
				return err
			}
			if opts.OnEntryDone != nil {
				opts.OnEntryDone(target.entry, n, target.outPath)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// selectExtractEntries resolves the explicit entry list or the listed entries, then applies selection rules.
func (r *Reader) selectExtractEntries(opts ExtractOptions) ([]EntryInfo, error) {
	entries := opts.Entries
	if entries == nil {
		entries = r.Entries()
	}

	matcher, err := newPathMatcher(opts.Rules, opts.RulesMatcherOptions, ErrInvalidSelectPattern)
	if err != nil {
		return nil, err
	}
	if matcher == nil {
		return entries, nil
	}

	selected := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if matcher.Match(entry.Path) {
			selected = append(selected, entry)
		}
	}

	return selected, nil
}

// planExtractTargets validates output names, resolves them under root
// and creates every parent directory once.
func planExtractTargets(root string, entries, names []EntryInfo) ([]extractTarget, error) {
	targets := make([]extractTarget, 0, len(entries))
	dirs := map[string]struct{}{root: {}}

	for i, entry := range entries {
		if entry.Deleted || strings.TrimSpace(names[i].Path) == "" {
			continue
		}

		rel, err := normalizeExtractEntryPath(names[i].Path)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", entry.Path, err)
		}

		outPath := filepath.Join(root, filepath.FromSlash(rel))
		if !isWithinRoot(root, outPath) {
			return nil, fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, entry.Path)
		}

		dirs[filepath.Dir(outPath)] = struct{}{}
		targets = append(targets, extractTarget{entry: entry, outPath: outPath})
	}

	if len(targets) == 0 {
		return nil, nil
	}

	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	return targets, nil
}

// extractTo decodes one entry and writes it to target.outPath.
// Auto mode retries without O_EXCL when the file already exists.
func (r *Reader) extractTo(target extractTarget, flags int, retryExisting bool) (int64, error) {
	data, err := r.ReadEntry(target.entry.Path)
	if err != nil {
		return 0, err
	}

	file, err := os.OpenFile(target.outPath, flags, 0o600)
	if err != nil && retryExisting && os.IsExist(err) {
		file, err = os.OpenFile(target.outPath, os.O_WRONLY|os.O_TRUNC, 0o600)
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", target.entry.Path, err)
	}

	n, err := file.Write(data)
	if err == nil && flags&(os.O_TRUNC|os.O_EXCL) == 0 {
		err = file.Truncate(int64(n))
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", target.entry.Path, err)
	}

	return int64(n), nil
}

// extractOpenFlags maps file modes to os.OpenFile flags.
// Overwrite-smart opens in place and truncates after the write.
var extractOpenFlags = map[ExtractFileMode]int{
	ExtractFileModeAuto:           os.O_WRONLY | os.O_CREATE | os.O_EXCL,
	ExtractFileModeOverwriteSmart: os.O_WRONLY | os.O_CREATE,
	ExtractFileModeTruncate:       os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
	ExtractFileModeCreateOnly:     os.O_WRONLY | os.O_CREATE | os.O_EXCL,
}

// isWithinRoot reports whether target stays under root after cleaning.
func isWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// normalizeExtractEntryPath returns a clean relative slash path, rejecting
// rooted, drive-qualified and parent-escaping names.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(entryPath), `\`, `/`)
	if p == "" || p[0] == '/' || strings.IndexByte(p, 0) >= 0 || isDriveRooted(p) {
		return "", ErrInvalidExtractPath
	}

	segments := strings.FieldsFunc(p, func(c rune) bool { return c == '/' })
	kept := segments[:0]
	for _, seg := range segments {
		if seg == ".." {
			return "", ErrInvalidExtractPath
		}
		if seg != "." {
			kept = append(kept, seg)
		}
	}
	if len(kept) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(kept, "/"), nil
}

// isDriveRooted reports a "C:/" style prefix.
func isDriveRooted(p string) bool {
	if len(p) < 3 || p[1] != ':' || p[2] != '/' {
		return false
	}

	c := p[0] | 0x20
	return c >= 'a' && c <= 'z'
}
