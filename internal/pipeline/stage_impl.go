package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/clickit/internal/bundle"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/manifest"
	"git.home.luguber.info/inful/clickit/internal/minify"
	"git.home.luguber.info/inful/clickit/internal/rewrite"
	"git.home.luguber.info/inful/clickit/internal/staticcopy"
	"git.home.luguber.info/inful/clickit/internal/verify"
)

// stagePrepareOutput removes the output root and recreates it empty.
func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	if err := checkOutputRoot(bs.SourceDir, bs.OutputDir); err != nil {
		return NewFatalStageError(StagePrepareOutput, err)
	}
	if err := os.RemoveAll(bs.OutputDir); err != nil {
		return NewFatalStageError(StagePrepareOutput, errors.WrapError(err, errors.CategoryFileSystem, "clean output directory").
			Fatal().
			WithContext("path", bs.OutputDir).
			Build())
	}
	if err := os.MkdirAll(bs.OutputDir, 0o750); err != nil {
		return NewFatalStageError(StagePrepareOutput, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			Fatal().
			WithContext("path", bs.OutputDir).
			Build())
	}
	return nil
}

// checkOutputRoot refuses output roots whose removal would destroy sources.
func checkOutputRoot(source, output string) error {
	if strings.TrimSpace(output) == "" {
		return errors.ValidationError("output directory is empty").Fatal().Build()
	}
	src, err := filepath.Abs(source)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "resolve source directory").Fatal().Build()
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "resolve output directory").Fatal().Build()
	}
	if out == filepath.Dir(out) {
		return errors.ValidationError("output directory is a filesystem root").Fatal().WithContext("path", out).Build()
	}
	if rel, err := filepath.Rel(out, src); err == nil && (rel == "." || !strings.HasPrefix(rel, "..")) {
		return errors.ValidationError("output directory contains the source directory").
			Fatal().
			WithContext("path", out).
			Build()
	}
	return nil
}

func stageBundleStyles(ctx context.Context, bs *BuildState) error {
	return bundleKind(ctx, bs, StageBundleStyles, manifest.KindStyle, "Styles")
}

func stageBundleScripts(ctx context.Context, bs *BuildState) error {
	return bundleKind(ctx, bs, StageBundleScripts, manifest.KindScript, "Scripts")
}

func bundleKind(_ context.Context, bs *BuildState, stage StageName, kind manifest.Kind, label string) error {
	bs.Console.Step("Bundling %s...", strings.ToLower(label))

	res, err := bundle.Concatenate(bs.SourceDir, bs.Manifest.Fragments(kind), kind, func(fragment string) {
		bs.warn(IssueMissingFragment, stage, "%s fragment not found: %s", kind, fragment)
	})
	if err != nil {
		return NewFatalStageError(stage, err)
	}

	minified := minify.Minify(res.Text, kind)
	rel := manifest.BundlePath(kind)
	dst := filepath.Join(bs.OutputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return NewFatalStageError(stage, errors.WrapError(err, errors.CategoryFileSystem, "create bundle directory").
			Fatal().
			WithContext("path", dst).
			Build())
	}
	// #nosec G306 -- bundles are public site assets
	if err := os.WriteFile(dst, []byte(minified), 0o644); err != nil {
		return NewFatalStageError(stage, errors.WrapError(err, errors.CategoryFileSystem, "write bundle").
			Fatal().
			WithContext("path", dst).
			Build())
	}

	bs.Report.Bundles[string(kind)] = BundleInfo{
		Path:      rel,
		Bytes:     len(minified),
		Fragments: len(res.Included),
		Missing:   res.Missing,
	}
	bs.Console.Success("%s bundled: %s (%s, %d fragments)", label, rel, humanize.Bytes(uint64(len(minified))), len(res.Included))
	return nil
}

func stageCopyStatic(ctx context.Context, bs *BuildState) error {
	bs.Console.Step("Copying static files...")
	for _, entry := range bs.Manifest.Copy {
		if err := ctx.Err(); err != nil {
			return NewCanceledStageError(StageCopyStatic, err)
		}
		copied := true
		stats, err := staticcopy.Copy(bs.SourceDir, bs.OutputDir, entry, func(src string) {
			copied = false
			bs.warn(IssueMissingCopySource, StageCopyStatic, "source not found: %s", src)
		})
		if err != nil {
			return NewFatalStageError(StageCopyStatic, err)
		}
		if !copied {
			continue
		}
		bs.Report.Copied = append(bs.Report.Copied, CopiedEntry{Src: entry.Src, Dest: entry.Dest, Files: stats.Files, Bytes: stats.Bytes})
		bs.Console.Success("Copied: %s → %s", entry.Src, entry.Dest)
	}
	return nil
}

func stageRewritePages(ctx context.Context, bs *BuildState) error {
	bs.Console.Step("Updating HTML pages...")
	for _, page := range bs.Manifest.Pages {
		if err := ctx.Err(); err != nil {
			return NewCanceledStageError(StageRewritePages, err)
		}
		src := filepath.Join(bs.SourceDir, filepath.FromSlash(page))
		dst := filepath.Join(bs.OutputDir, filepath.FromSlash(page))
		if _, err := rewrite.File(src, dst, bs.Rewrite); err != nil {
			if errors.HasCategory(err, errors.CategoryNotFound) {
				bs.warn(IssueMissingPage, StageRewritePages, "page not found: %s", page)
				continue
			}
			return NewFatalStageError(StageRewritePages, err)
		}
		bs.Report.UpdatedPages = append(bs.Report.UpdatedPages, page)
		bs.Console.Success("Updated: %s", page)
	}
	return nil
}

// stageVerifyPages re-reads every rewritten page. Findings are warnings.
func stageVerifyPages(ctx context.Context, bs *BuildState) error {
	for _, page := range bs.Report.UpdatedPages {
		if err := ctx.Err(); err != nil {
			return NewCanceledStageError(StageVerifyPages, err)
		}
		findings, err := verify.File(verify.Expect{
			Page:         page,
			StyleBundle:  manifest.StyleBundle,
			ScriptBundle: manifest.ScriptBundle,
			Fragments:    bs.Manifest.Scripts,
			OutputRoot:   bs.OutputDir,
		})
		if err != nil {
			return NewWarnStageError(StageVerifyPages, fmt.Errorf("verify %s: %w", page, err))
		}
		for _, f := range findings {
			bs.Report.Findings = append(bs.Report.Findings, f)
			bs.warn(IssueVerifyFinding, StageVerifyPages, "%s", f.String())
		}
	}
	return nil
}
