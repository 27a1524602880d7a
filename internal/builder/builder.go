// Package builder orchestrates section builds: full passes over the sections
// root, incremental passes over changed paths, and removal of outputs whose
// sources are gone.
package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/sectionforge/sectionforge/internal/fsutil"
	"github.com/sectionforge/sectionforge/internal/logging"
	"github.com/sectionforge/sectionforge/internal/section"
)

// SectionsDirname is the directory under both the source root and the
// destination root that holds sections.
const SectionsDirname = "sections"

// Builder compiles sections from a source tree into a destination tree.
// It is driven serially, either by a one-shot full build or by the watch
// loop; no two builds run concurrently.
type Builder struct {
	srcSections  string
	distRoot     string
	distSections string
	mapper       section.Mapper
	compiler     section.Compiler
	log          *slog.Logger

	// Fingerprints of what was last written per destination path, so
	// unchanged outputs are not rewritten. Only touched by the serial
	// build entry points.
	fingerprints map[string][blake2b.Size256]byte
}

// New builds a Builder for a source root and a destination root (the
// "sections" level is appended to both).
func New(srcRoot, distRoot string, compiler section.Compiler, log *slog.Logger) *Builder {
	if log == nil {
		log = logging.New("builder")
	}
	srcSections := filepath.Join(srcRoot, SectionsDirname)
	distSections := filepath.Join(distRoot, SectionsDirname)
	return &Builder{
		srcSections:  srcSections,
		distRoot:     distRoot,
		distSections: distSections,
		mapper:       section.NewMapper(srcSections, distSections),
		compiler:     compiler,
		log:          log,
		fingerprints: make(map[string][blake2b.Size256]byte),
	}
}

// Mapper exposes the path mapper shared with the watch loop.
func (b *Builder) Mapper() section.Mapper { return b.mapper }

// FullBuild compiles every section under the sections root and writes each
// output, overwriting whatever is there. A missing sections root is not an
// error; there is simply nothing to do. Per-section failures are isolated:
// they are logged, collected, and never abort sibling sections.
func (b *Builder) FullBuild() error {
	entries, err := os.ReadDir(b.srcSections)
	if errors.Is(err, fs.ErrNotExist) {
		b.log.Debug("no sections directory, skipping build", "dir", b.srcSections)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sections dir %s: %w", b.srcSections, err)
	}

	if err := fsutil.EnsureDirs(b.distRoot, b.distSections); err != nil {
		return err
	}

	var errs []error
	for _, entry := range entries {
		if err := b.buildSection(entry.Name()); err != nil {
			b.log.Error("section build failed", "section", entry.Name(), "error", err)
			errs = append(errs, fmt.Errorf("section %s: %w", entry.Name(), err))
		}
	}

	b.log.Info("full build complete", "sections", len(entries))
	return errors.Join(errs...)
}

// IncrementalBuild recompiles the distinct set of sections implicated by the
// changed paths. Paths that do not resolve to a section depth are silently
// ignored. Each implicated name is re-resolved against the live filesystem:
// it may be a file or a directory by now, and a name that no longer exists
// at all is skipped here, since removal is the remove path's job. Returns
// the names actually rebuilt.
func (b *Builder) IncrementalBuild(changed []string) ([]string, error) {
	names := make(map[string]struct{})
	for _, p := range changed {
		if name, ok := b.mapper.SectionName(p); ok {
			names[name] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	var built []string
	var errs []error
	for _, name := range ordered {
		if _, err := os.Stat(filepath.Join(b.srcSections, name)); errors.Is(err, fs.ErrNotExist) {
			b.log.Debug("section gone, leaving removal to the remove path", "section", name)
			continue
		}
		if err := b.buildSection(name); err != nil {
			b.log.Error("section rebuild failed", "section", name, "error", err)
			errs = append(errs, fmt.Errorf("section %s: %w", name, err))
			continue
		}
		built = append(built, name)
	}
	return built, errors.Join(errs...)
}

// RemoveOutputs deletes the destination file mapped from each removed source
// path. Each implicated section is re-resolved against the live filesystem
// first: a nested path can vanish (say a subfolder inside a section folder)
// while the section itself is still there, and a live section keeps its
// output. Absence of the target is success; removal is idempotent. Returns
// the destination paths actually deleted.
func (b *Builder) RemoveOutputs(removed []string) ([]string, error) {
	var deleted []string
	var errs []error
	for _, p := range removed {
		name, ok := b.mapper.SectionName(p)
		if !ok {
			continue
		}
		if _, err := os.Stat(filepath.Join(b.srcSections, name)); err == nil {
			b.log.Debug("section source still exists, keeping output", "section", name)
			continue
		}
		dest := filepath.Join(b.distSections, b.mapper.DestName(name))
		err := os.Remove(dest)
		if errors.Is(err, fs.ErrNotExist) {
			delete(b.fingerprints, dest)
			continue
		}
		if err != nil {
			b.log.Error("remove output failed", "path", dest, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", dest, err))
			continue
		}
		delete(b.fingerprints, dest)
		deleted = append(deleted, dest)
		b.log.Info("removed output", "path", dest)
	}
	return deleted, errors.Join(errs...)
}

// buildSection re-resolves a section name against the live filesystem and
// compiles it. A single file is copied verbatim; a directory is flattened
// through the compiler. Nothing is written when any read fails, so a vanished
// source never yields a partial output.
func (b *Builder) buildSection(name string) error {
	srcPath := filepath.Join(b.srcSections, name)

	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcPath, err)
	}

	var content []byte
	if info.IsDir() {
		files, err := b.readRoleFiles(srcPath)
		if err != nil {
			return err
		}
		content, err = b.compiler.Assemble(files)
		if err != nil {
			return err
		}
	} else {
		content, err = os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", srcPath, err)
		}
	}

	dest := filepath.Join(b.distSections, b.mapper.DestName(name))
	return b.write(dest, content)
}

// readRoleFiles lists a section folder's immediate entries and reads the
// role-typed ones. Listing order does not matter; the compiler re-orders by
// role. Filenames matching no role are ignored.
func (b *Builder) readRoleFiles(dir string) ([]section.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read section dir %s: %w", dir, err)
	}

	var files []section.File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		role, ok := section.RoleForName(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Join(dir, entry.Name()), err)
		}
		files = append(files, section.File{Role: role, Contents: data})
	}
	return files, nil
}

// write persists one compiled output, skipping the disk entirely when the
// exact bytes are already in place from an earlier pass.
func (b *Builder) write(dest string, content []byte) error {
	sum := blake2b.Sum256(content)
	if prev, ok := b.fingerprints[dest]; ok && prev == sum {
		if _, err := os.Stat(dest); err == nil {
			b.log.Debug("output unchanged", "path", dest)
			return nil
		}
	}

	if err := fsutil.WriteFileAtomic(dest, content); err != nil {
		return err
	}
	b.fingerprints[dest] = sum
	b.log.Debug("wrote output", "path", dest, "bytes", len(content))
	return nil
}
